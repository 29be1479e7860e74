package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkerian10/pluto/internal/config"
	"github.com/mkerian10/pluto/internal/logging"
	"github.com/mkerian10/pluto/internal/pipeline"
)

// newRootCmd builds the plutoc command tree: check/compile/run/test/
// analyze/sync are implemented against internal/pipeline; watch/install/use
// are named by SPEC_FULL §6 but out of this repo's scope, so they return a
// not-implemented error rather than silently doing nothing.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "plutoc",
		Short:         "The Pluto language toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a pluto.toml/pluto.yaml config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug-level logging")
	root.PersistentFlags().Bool("json-logs", false, "emit structured JSON logs instead of console output")
	root.PersistentFlags().String("stdlib", "", "path to the Pluto standard library (overrides PLUTO_STDLIB)")

	root.AddCommand(
		newCheckCmd(),
		newCompileCmd(),
		newRunCmd(),
		newTestCmd(),
		newAnalyzeCmd(),
		newSyncCmd(),
		newNotImplementedCmd("watch", "recompile on file change"),
		newNotImplementedCmd("install", "fetch a published Pluto package"),
		newNotImplementedCmd("use", "pin a toolchain version"),
	)
	return root
}

// loadRunContext resolves config + a logger for one subcommand invocation,
// shared by every pipeline-backed command below.
func loadRunContext(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Verbose, cfg.JSONLogs)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	return cfg, logger, nil
}

// entryModulePath derives the dotted module path modgraph.Load expects
// from an entry file's basename, per §4.B's "X/Y.pluto ↔ import a.b.c"
// correspondence applied in reverse for the file the user named on the
// command line.
func entryModulePath(entryPath string) string {
	base := filepath.Base(entryPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <entry.pluto>",
		Short: "Type-check a program without emitting code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadRunContext(cmd)
			if err != nil {
				return err
			}
			_, err = pipeline.Run(pipeline.Options{
				EntryPath:       args[0],
				EntryModulePath: entryModulePath(args[0]),
				SearchRoots:     []string{filepath.Dir(args[0])},
				StdlibPath:      cfg.StdlibPath,
				EmitIR:          true,
			}, lg)
			return err
		},
	}
	return cmd
}

func newCompileCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile <entry.pluto>",
		Short: "Compile a program to its linked output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadRunContext(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}
			res, err := pipeline.Run(pipeline.Options{
				EntryPath:       args[0],
				EntryModulePath: entryModulePath(args[0]),
				SearchRoots:     []string{filepath.Dir(args[0])},
				StdlibPath:      cfg.StdlibPath,
				OutputPath:      output,
			}, lg)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(res.LinkPlan.Args, " "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (defaults to the entry file's name without extension)")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <entry.pluto>",
		Short: "Compile and immediately execute a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("plutoc run: no native execution backend is wired — only internal/codegen/backend/text exists in this build; use `plutoc compile` and inspect the emitted IR text instead")
		},
	}
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <entry.pluto>",
		Short: "Compile in test mode and report discovered test blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadRunContext(cmd)
			if err != nil {
				return err
			}
			res, err := pipeline.Run(pipeline.Options{
				EntryPath:       args[0],
				EntryModulePath: entryModulePath(args[0]),
				SearchRoots:     []string{filepath.Dir(args[0])},
				StdlibPath:      cfg.StdlibPath,
				EmitIR:          true,
			}, lg)
			if err != nil {
				return err
			}
			for _, name := range res.Module.TestEntries {
				fmt.Println(name)
			}
			return nil
		},
	}
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <entry.pluto>",
		Short: "Run the full pipeline and report every warning collected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadRunContext(cmd)
			if err != nil {
				return err
			}
			res, runErr := pipeline.Run(pipeline.Options{
				EntryPath:       args[0],
				EntryModulePath: entryModulePath(args[0]),
				SearchRoots:     []string{filepath.Dir(args[0])},
				StdlibPath:      cfg.StdlibPath,
				EmitIR:          true,
			}, lg)
			for _, w := range res.Warnings.Warnings {
				fmt.Println(w.Error())
			}
			return runErr
		},
	}
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <entry.pluto>",
		Short: "Re-derive and rewrite a .pluto binary container's cached data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadRunContext(cmd)
			if err != nil {
				return err
			}
			res, err := pipeline.Run(pipeline.Options{
				EntryPath:       args[0],
				EntryModulePath: entryModulePath(args[0]),
				SearchRoots:     []string{filepath.Dir(args[0])},
				StdlibPath:      cfg.StdlibPath,
				EmitIR:          true,
			}, lg)
			if err != nil {
				return err
			}
			outPath := strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".plutob"
			if err := os.WriteFile(outPath, res.Derived, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Printf("wrote %d bytes of derived data to %s\n", len(res.Derived), outPath)
			return nil
		},
	}
}

func newNotImplementedCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short + " (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("plutoc %s: not implemented in this build", name)
		},
	}
}

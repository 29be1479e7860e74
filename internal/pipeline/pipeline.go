// Package pipeline sequences every compile stage A-K (SPEC_FULL §4, §5)
// behind one entry point, the shape cmd/plutoc's subcommands and any
// future LSP/watch driver both call into. Each stage is a small struct
// method so the aggregate Result carries every stage's diagnostics rather
// than only the first failure, matching the teacher's single-aggregate-
// struct style (interp.go's Interpreter accumulates state across a whole
// run rather than threading loose return values through every call).
package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/codegen/ir"
	"github.com/mkerian10/pluto/internal/codegen/lower"
	"github.com/mkerian10/pluto/internal/contracts"
	"github.com/mkerian10/pluto/internal/derived"
	"github.com/mkerian10/pluto/internal/desugar"
	"github.com/mkerian10/pluto/internal/diag"
	"github.com/mkerian10/pluto/internal/linker"
	"github.com/mkerian10/pluto/internal/modgraph"
	"github.com/mkerian10/pluto/internal/mono"
	"github.com/mkerian10/pluto/internal/prelude"
	"github.com/mkerian10/pluto/internal/resolver"
	"github.com/mkerian10/pluto/internal/sema"
)

// Options configures one pipeline run.
type Options struct {
	EntryPath       string
	EntryModulePath string
	SearchRoots     []string
	StdlibPath      string // PLUTO_STDLIB, prepended to SearchRoots if set
	OutputPath      string
	EmitIR          bool // stop after lowering, skip the link step
}

// Result is everything a caller (a CLI subcommand, a future LSP) might
// want back from one run: the final program, its lowered IR (if it got
// that far), the derived-data container bytes, and every non-fatal
// diagnostic collected along the way in one Bag (each Diagnostic carries
// its own Severity; a fatal stage error is returned as Run's error).
type Result struct {
	Program    *ast.Program
	Module     *ir.Module
	Derived    []byte
	LinkPlan   *linker.Plan
	Warnings   *diag.Bag
}

// Run executes every stage in order, stopping at the first stage that
// returns a fatal error. Warnings accumulate in Result.Warnings regardless
// of which stage produced them; Result.Warnings.AsError() folds them into
// one reportable error via hashicorp/go-multierror (through diag.Bag) once
// the run finishes.
func Run(opts Options, log *zap.Logger) (*Result, error) {
	res := &Result{Warnings: &diag.Bag{}}
	roots := opts.SearchRoots
	if opts.StdlibPath != "" {
		roots = append([]string{opts.StdlibPath}, roots...)
	}

	log.Debug("resolving module graph", zap.String("entry", opts.EntryPath))
	graph := modgraph.New(roots...)
	loadDiags, err := graph.Load(opts.EntryPath, opts.EntryModulePath)
	for _, d := range loadDiags {
		res.Warnings.Add(d)
	}
	if err != nil {
		return res, fmt.Errorf("pipeline: module graph: %w", err)
	}
	if err := graph.ParseAll(); err != nil {
		return res, fmt.Errorf("pipeline: parsing: %w", err)
	}
	prog, flattenDiags := graph.Flatten()
	for _, d := range flattenDiags {
		res.Warnings.Add(d)
	}
	res.Program = prog

	log.Debug("injecting prelude")
	if err := prelude.Inject(prog); err != nil {
		return res, fmt.Errorf("pipeline: prelude: %w", err)
	}

	log.Debug("desugaring")
	if err := desugar.Run(prog); err != nil {
		return res, fmt.Errorf("pipeline: desugar: %w", err)
	}

	log.Debug("validating contracts")
	for _, d := range contracts.Validate(prog) {
		res.Warnings.Add(d)
	}

	log.Debug("type checking")
	env := sema.BuildEnv(prog)
	sema.ReclassifyTypeNames(prog, env)
	checker := sema.NewChecker(env)
	checker.Check(prog)
	for _, d := range checker.Diagnostics() {
		res.Warnings.Add(d)
	}
	checker.CoerceTraits(prog)

	diOrder, diErrs := sema.CheckDI(prog, env)
	for _, e := range diErrs {
		res.Warnings.Add(diag.New(diag.Type, ast.Span{}, "%s", e))
	}

	sema.InferErrorSets(prog, env)

	log.Debug("monomorphising")
	monomorphizer := mono.NewMonomorphizer(env)
	monomorphizer.Run(prog)
	for _, d := range monomorphizer.Diagnostics() {
		res.Warnings.Add(d)
	}

	lifter := mono.NewClosureLifter()
	lifter.Run(prog)

	log.Debug("resolving cross references")
	resolver.Resolve(prog)

	info := buildDerivedInfo(prog, diOrder)
	derivedBytes, err := derived.Encode(prog, mergedSource(prog), info)
	if err != nil {
		return res, fmt.Errorf("pipeline: encoding derived data: %w", err)
	}
	res.Derived = derivedBytes

	log.Debug("lowering to IR")
	mod, lowerDiags := lower.Lower(prog)
	for _, d := range lowerDiags {
		res.Warnings.Add(d)
	}
	res.Module = mod

	if opts.EmitIR {
		return res, res.Warnings.AsError()
	}

	log.Debug("linking", zap.String("output", opts.OutputPath))
	plan, err := linker.Link(mod, linker.Options{OutputPath: opts.OutputPath})
	if err != nil {
		return res, fmt.Errorf("pipeline: link: %w", err)
	}
	res.LinkPlan = plan
	for _, w := range plan.Warnings {
		res.Warnings.Add(diag.Warnf(diag.Link, ast.Span{}, "%s", w))
	}

	return res, res.Warnings.AsError()
}

// mergedSource concatenates every file the module graph merged into prog,
// in file-ID order, for the derived-data container's source frame and
// source hash (§4.H).
func mergedSource(prog *ast.Program) string {
	if prog.Sources == nil {
		return ""
	}
	var b strings.Builder
	for _, f := range prog.Sources.Files {
		b.WriteString(f.Text)
	}
	return b.String()
}

// buildDerivedInfo populates the subset of DerivedInfo the pipeline can
// compute cheaply from the checked program — function signatures and the
// DI construction order. Class/trait/enum/error field layouts,
// per-function error sets and trait implementors are left empty.
func buildDerivedInfo(prog *ast.Program, diOrder []string) *derived.DerivedInfo {
	info := derived.NewDerivedInfo()
	info.DIOrder = diOrder
	for _, fn := range prog.Functions {
		var params []*ast.Type
		for _, p := range fn.Node.Params {
			params = append(params, p.Type)
		}
		info.FnSignatures[fn.Node.ID.String()] = derived.FnSignature{
			ParamTypes: params,
			ReturnType: fn.Node.Return,
			IsFallible: fn.Node.IsFallible,
		}
	}
	return info
}

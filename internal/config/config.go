// Package config loads plutoc's configuration via spf13/viper, giving
// flags, environment variables, and an optional config file one
// precedence chain (SPEC_FULL §9): flags win, then environment (PLUTO_*),
// then a `pluto.toml`/`pluto.yaml` file in the working directory, then
// built-in defaults.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved set of values every subcommand needs.
type Config struct {
	StdlibPath string // PLUTO_STDLIB — search root prepended ahead of a program's own module roots
	Verbose    bool
	JSONLogs   bool
}

// Load binds flags (already registered on fs by the calling cobra command)
// through viper, applies PLUTO_ env-var overrides, and reads an optional
// config file named by --config (or "pluto" in the working directory if
// unset), returning the fully resolved Config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLUTO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetDefault("stdlib", "")
	v.SetDefault("verbose", false)
	v.SetDefault("json-logs", false)

	if cfgFile, _ := fs.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pluto")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	return &Config{
		StdlibPath: v.GetString("stdlib"),
		Verbose:    v.GetBool("verbose"),
		JSONLogs:   v.GetBool("json-logs"),
	}, nil
}

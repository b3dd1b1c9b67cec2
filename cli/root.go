// Package cli implements the staffing-estimator command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffing-estimator/config"
	"staffing-estimator/logging"
)

// Version is set at build time with -ldflags "-X staffing-estimator/cli.Version=...".
var Version = "dev"

var rootCmd = newRootCmd()

// app carries the state shared by one command tree: the viper instance the
// flags are bound to and the config file path.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "staffing-estimator",
		Short: "Estimate store staffing from historical order exports",
		Long: `staffing-estimator turns an orders export (CSV or XLSX) into the number of
pickers needed per hour, groups them into shift blocks, and optionally
forecasts a future date range from weekday patterns.

Configuration is resolved from flags, then STAFFING_* environment variables,
then the --config file, then built-in defaults.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", config.Default().Log.Level, "Log level: trace|debug|info|warn|error")
	root.PersistentFlags().String("log-format", config.Default().Log.Format, "Log format: console|json")
	a.bindPersistent(root, "log.level", "log-level")
	a.bindPersistent(root, "log.format", "log-format")

	root.AddCommand(a.newEstimateCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (a *app) bindPersistent(cmd *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// load resolves the configuration and builds the logger for it.
func (a *app) load(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return cfg, logger, nil
}

package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/djeday123/bigram/pkg/config"
	"github.com/djeday123/bigram/pkg/logging"
)

var (
	configFile string
	v          = config.New()
	cfg        *config.Config
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "bigram",
	Short: "character-level bigram language model",
	Long: `Train a character-level bigram language model, save it as a full model
and as a state dict, reload either form and sample text from it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if keys, ok := f.Annotations[configKey]; ok && err == nil {
				err = v.BindPFlag(keys[0], f)
			}
		})
		if err != nil {
			return err
		}
		cfg, err = config.LoadWith(v, configFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Writer: os.Stderr,
		})
		return err
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

const configKey = "bigram_config_key"

// bindFlag ties a flag to a config key so that, when the command runs, the
// flag overrides file and env values.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := cmd.Flags().SetAnnotation(flag, configKey, []string{key}); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./bigram.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
	if err := v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(trainCmd, generateCmd, inspectCmd, gradcheckCmd, configCmd, versionCmd)
}

// Package main provides the vibe-norm command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vibe-norm",
		Short: "Variant normalizer",
		Long: `vibe-norm rewrites variants into their canonical minimal form: shared
leading bases are trimmed and insertions and deletions are shifted right
through repeats as far as the reference allows.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose")); err != nil {
				return err
			}
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-norm.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose (debug) logging")

	cmd.AddCommand(newNormalizeCmd())
	cmd.AddCommand(newVCFCmd())
	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}

// initConfig reads the config file and environment. A missing default config
// file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".vibe-norm.yaml"))
		}
	}

	viper.SetEnvPrefix("VIBE_NORM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("output-format", "tab")
	viper.SetDefault("workers", 0)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays clean
// for results.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if viper.GetBool("verbose") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

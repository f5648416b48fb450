package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKey is a setting that may be stored in the config file.
type configKey struct {
	name  string
	usage string
	parse func(string) (any, error)
}

var configKeys = []configKey{
	{"fasta", "default reference FASTA for normalize and vcf", parsePath},
	{"cache", "DuckDB result cache used by vcf and cache", parsePath},
	{"workers", "normalization workers, 0 for all CPUs", parseWorkers},
	{"output-format", "vcf output format: tab or vcf", parseOutputFormat},
	{"verbose", "debug logging", parseBool},
}

func lookupConfigKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.name == name {
			return k, true
		}
	}
	return configKey{}, false
}

func newConfigCmd() *cobra.Command {
	var names []string
	for _, k := range configKeys {
		names = append(names, fmt.Sprintf("  %-14s %s", k.name, k.usage))
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the vibe-norm config file",
		Long: "Settings are read from ~/.vibe-norm.yaml (or --config), then VIBE_NORM_* " +
			"environment variables, then flags.\n\nKeys:\n" + strings.Join(names, "\n"),
		Example: `  vibe-norm config
  vibe-norm config set fasta /data/GRCh38.fa
  vibe-norm config set workers 8
  vibe-norm config unset cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout(), configFilePath())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), configFilePath(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigUnset(cmd.OutOrStdout(), configFilePath(), args[0])
		},
	})

	return cmd
}

// configFilePath returns the file initConfig pointed viper at, falling back
// to ~/.vibe-norm.yaml.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vibe-norm.yaml"
	}
	return filepath.Join(home, ".vibe-norm.yaml")
}

// runConfigShow prints the effective value of every known key.
func runConfigShow(w io.Writer, path string) error {
	effective := make(map[string]any, len(configKeys))
	for _, k := range configKeys {
		if v := viper.Get(k.name); v != nil {
			effective[k.name] = v
		}
	}

	out, err := yaml.Marshal(effective)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintf(w, "# %s\n", path)
	_, err = w.Write(out)
	return err
}

func runConfigGet(w io.Writer, name string) error {
	if _, ok := lookupConfigKey(name); !ok {
		return fmt.Errorf("unknown config key %q", name)
	}
	v := viper.Get(name)
	if v == nil || v == "" {
		return fmt.Errorf("key %q is not set", name)
	}
	fmt.Fprintln(w, v)
	return nil
}

func runConfigSet(w io.Writer, path, name, raw string) error {
	key, ok := lookupConfigKey(name)
	if !ok {
		return fmt.Errorf("unknown config key %q", name)
	}
	value, err := key.parse(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}

	settings, err := readConfigFile(path)
	if err != nil {
		return err
	}
	settings[name] = value
	if err := writeConfigFile(path, settings); err != nil {
		return err
	}

	viper.Set(name, value)
	fmt.Fprintf(w, "Set %s = %v in %s\n", name, value, path)
	return nil
}

func runConfigUnset(w io.Writer, path, name string) error {
	if _, ok := lookupConfigKey(name); !ok {
		return fmt.Errorf("unknown config key %q", name)
	}

	settings, err := readConfigFile(path)
	if err != nil {
		return err
	}
	if _, ok := settings[name]; !ok {
		fmt.Fprintf(w, "%s is not set in %s\n", name, path)
		return nil
	}
	delete(settings, name)
	if err := writeConfigFile(path, settings); err != nil {
		return err
	}

	fmt.Fprintf(w, "Removed %s from %s\n", name, path)
	return nil
}

// readConfigFile returns the settings stored in path; a missing file holds
// no settings.
func readConfigFile(path string) (map[string]any, error) {
	settings := make(map[string]any)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if settings == nil {
		settings = make(map[string]any)
	}
	return settings, nil
}

func writeConfigFile(path string, settings map[string]any) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func parsePath(s string) (any, error) {
	if s == "" {
		return nil, errors.New("empty path")
	}
	if strings.HasPrefix(s, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		s = filepath.Join(home, s[2:])
	}
	return s, nil
}

func parseWorkers(s string) (any, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative worker count %d", n)
	}
	return n, nil
}

func parseOutputFormat(s string) (any, error) {
	switch s {
	case "tab", "vcf":
		return s, nil
	}
	return nil, fmt.Errorf("unknown output format %q", s)
}

func parseBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

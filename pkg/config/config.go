// Package config loads process configuration from a YAML file, a
// cobra flag set, or both — flags always win over file values, file
// values always win over the defaults below.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is every knob sdbcore needs to start a process: where its
// durable state lives, how it logs, and which optional subsystems are
// wired in.
type Config struct {
	DataDir       string `yaml:"data_dir"`
	LogLevel      string `yaml:"log_level"`
	LogJSON       bool   `yaml:"log_json"`
	MetricsAddr   string `yaml:"metrics_addr"`
	HealthAddr    string `yaml:"health_addr"`
	EnablePersist bool   `yaml:"enable_persist"`
	EnablePprof   bool   `yaml:"enable_pprof"`
}

// Default returns the configuration a bare `sdbcore serve` starts
// with: in-memory blob store and no durable commit log, JSON logging
// off, no pprof.
func Default() *Config {
	return &Config{
		DataDir:       "./sdbcore-data",
		LogLevel:      "info",
		LogJSON:       false,
		MetricsAddr:   "127.0.0.1:9090",
		HealthAddr:    "127.0.0.1:9091",
		EnablePersist: false,
		EnablePprof:   false,
	}
}

// Load reads a YAML config file, filling in defaults for anything the
// file leaves unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers one persistent flag per Config field on cmd,
// defaulted from Default(). RunE bodies read the final values back out
// with FromFlags rather than holding onto cmd directly, so a --config
// file and flag overrides compose the same way the file and built-in
// defaults do.
func BindFlags(cmd *cobra.Command) {
	d := Default()
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("data-dir", d.DataDir, "Directory for durable catalog, commit log, and blob store state")
	cmd.PersistentFlags().String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", d.LogJSON, "Output logs in JSON format")
	cmd.PersistentFlags().String("metrics-addr", d.MetricsAddr, "Address for the /metrics HTTP endpoint")
	cmd.PersistentFlags().String("health-addr", d.HealthAddr, "Address for the /health, /ready, and /live HTTP endpoints")
	cmd.PersistentFlags().Bool("enable-persist", d.EnablePersist, "Back the commit log and blob store with bbolt instead of memory")
	cmd.PersistentFlags().Bool("enable-pprof", d.EnablePprof, "Enable pprof profiling endpoints alongside the health server")
	// Make the flags visible through cmd.Flags() before cobra parses.
	cmd.Flags().AddFlagSet(cmd.PersistentFlags())
}

// FromFlags resolves a Config from cmd's flags, first loading
// --config if one was given, then overlaying any flag the caller
// explicitly set.
func FromFlags(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	overlay := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	overlay("data-dir", func() { cfg.DataDir, _ = flags.GetString("data-dir") })
	overlay("log-level", func() { cfg.LogLevel, _ = flags.GetString("log-level") })
	overlay("log-json", func() { cfg.LogJSON, _ = flags.GetBool("log-json") })
	overlay("metrics-addr", func() { cfg.MetricsAddr, _ = flags.GetString("metrics-addr") })
	overlay("health-addr", func() { cfg.HealthAddr, _ = flags.GetString("health-addr") })
	overlay("enable-persist", func() { cfg.EnablePersist, _ = flags.GetBool("enable-persist") })
	overlay("enable-pprof", func() { cfg.EnablePprof, _ = flags.GetBool("enable-pprof") })

	return cfg, nil
}

// Package cli provides command-line interface commands for the scansage
// sanitized ingestion service. This package implements the Cobra-based CLI
// structure with commands for running the API server, one-shot local
// ingestion, and retained record management.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scansage/scansage/internal/config"
	"github.com/scansage/scansage/internal/logging"
)

const (
	// Default configuration constants.
	defaultServerPort     = 8080
	defaultRequestsPerSec = 100
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scansage",
	Short: "Sanitized Nmap XML Ingestion Service",
	Long: `Scansage accepts Nmap XML payloads from untrusted callers and produces
redacted, size-capped ingestion envelopes. Raw scanner output stays local;
responses carry only payload digests, counts, and sanitized findings.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scansage.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("scansage")
	}

	// Read in environment variables that match
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCANSAGE")

	// Set defaults for common configuration
	setConfigDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	// Initialize structured logging after config is loaded
	initLogging()
}

// setConfigDefaults sets default values for configuration.
func setConfigDefaults() {
	// Server configuration
	viper.SetDefault("server.listen_addr", "127.0.0.1")
	viper.SetDefault("server.port", defaultServerPort)
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.requests_per_second", defaultRequestsPerSec)

	// Storage configuration
	viper.SetDefault("storage.directory", "state/public")

	// Ingestion configuration
	viper.SetDefault("ingest.lab_mode", false)
	viper.SetDefault("ingest.parser", "")

	// Logging configuration
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.request_logging", true)
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	// Try to load full config for logging settings
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		// If config loading fails, use default logging
		logger := logging.NewDefault()
		logging.SetDefault(logger)
		return
	}

	logConfig := cfg.GetLoggingConfig()
	logConfig.AddSource = cfg.Logging.Level == "debug"

	// Create logger
	logger, err := logging.New(logConfig)
	if err != nil {
		// Fall back to default if creation fails
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	// Set as default logger
	logging.SetDefault(logger)

	// Log initialization if verbose
	if verbose {
		logging.Info("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
}

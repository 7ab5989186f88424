// Package cli implements the veracity command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veracitylab/veracity/internal/engine"
	"github.com/veracitylab/veracity/internal/logging"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/store"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "veracity",
	Short: "Veracity - fact-checking and story correlation engine",
	Long: `Veracity ingests news articles, extracts their checkable claims,
verifies each claim against multiple verification providers, and
correlates related articles into story clusters with timelines and
cross-source consensus.

It reports how well claims are supported, where providers disagree,
and how reliable each source has been over time. It does not decide
what is true; it measures agreement.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("veracity v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.veracity/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.veracity")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VERACITY_*
	viper.SetEnvPrefix("VERACITY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, and environment
// variables into a complete configuration. Called once per pass so
// file edits apply to the next run.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid configuration, using defaults: %v\n", err)
		cfg = model.DefaultConfig()
	}

	if verbose && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	// API keys fall back to the conventional environment variables
	// when the config file leaves them blank.
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKey != "" {
			continue
		}
		switch cfg.Providers[i].Type {
		case "openai":
			cfg.Providers[i].APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Providers[i].APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Extraction.UseLLM && cfg.Extraction.LLMAPIKey == "" {
		cfg.Extraction.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg
}

// newEngine opens the configured store and builds the engine.
// Callers own Close on the returned engine.
func newEngine() (*engine.Engine, error) {
	cfg := loadConfig()
	logging.SetLevel(cfg.Logging.Level)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	eng, err := engine.New(loadConfig, st, nil)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return eng, nil
}

package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobforge/jobforge/internal/council"
	"github.com/jobforge/jobforge/internal/matching"
	"github.com/jobforge/jobforge/internal/search"
	"github.com/jobforge/jobforge/internal/workflow"
)

const (
	app = "jobforge"

	geminiKeyEnv   = "GEMINI_API_KEY"
	jobboardKeyEnv = "JOBBOARD_API_KEY"
)

type Config struct {
	Profile    *ProfileConfig   `mapstructure:"profile"`
	Search     *SearchConfig    `mapstructure:"search"`
	Scoring    *ScoringConfig   `mapstructure:"scoring"`
	Council    *council.Config  `mapstructure:"council"`
	Generation *workflow.Config `mapstructure:"generation"`
	Ledger     *LedgerConfig    `mapstructure:"ledger"`
	Board      *BoardConfig     `mapstructure:"board"`
}

type ProfileConfig struct {
	// ResumeFile is the plain-text resume the candidate profile is
	// extracted from.
	ResumeFile   string   `mapstructure:"resume-file"`
	DesiredRoles []string `mapstructure:"desired-roles"`
}

type SearchConfig struct {
	Queries []string      `mapstructure:"queries"`
	Limits  search.Config `mapstructure:"limits"`
}

type ScoringConfig struct {
	Weights *matching.Weights `mapstructure:"weights"`
	Tuning  *matching.Tuning  `mapstructure:"tuning"`
}

type LedgerConfig struct {
	// Backend is "file" (default) or "redis".
	Backend string       `mapstructure:"backend"`
	Path    string       `mapstructure:"path"`
	Redis   *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type BoardConfig struct {
	APIURL     string `mapstructure:"api-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	UserAgent  string `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobforge searches job boards, scores postings against your profile and drafts applications for the strong matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobforge.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// version needs no config file.
	if runCmd.CalledAs() == "" && statusCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}

// ledgerStore builds the configured ledger store, defaulting to a JSON file
// next to the working directory.
func ledgerStore(cfg *LedgerConfig) search.Store {
	if cfg == nil {
		return search.NewFileStore(app + "-ledger.json")
	}

	if cfg.Backend == "redis" && cfg.Redis != nil {
		return newRedisLedgerStore(cfg.Redis)
	}

	path := cfg.Path
	if path == "" {
		path = app + "-ledger.json"
	}
	return search.NewFileStore(path)
}

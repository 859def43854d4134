package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edadash/internal/schema"
)

// Global configuration structure.
type Global struct {
	DataDir           string   `mapstructure:"data_dir" yaml:"data_dir"`
	FraudPatterns     []string `mapstructure:"fraud_patterns" yaml:"fraud_patterns"`
	MarketingPatterns []string `mapstructure:"marketing_patterns" yaml:"marketing_patterns"`
	// MaxRows caps the fraud table; larger tables are downsampled.
	MaxRows       int   `mapstructure:"max_rows" yaml:"max_rows"`
	DisplaySample int   `mapstructure:"display_sample" yaml:"display_sample"`
	Seed          int64 `mapstructure:"seed" yaml:"seed"`

	// Segmentation
	Clusters         int `mapstructure:"clusters" yaml:"clusters"`
	KMin             int `mapstructure:"k_min" yaml:"k_min"`
	KMax             int `mapstructure:"k_max" yaml:"k_max"`
	KMeansNInit      int `mapstructure:"kmeans_n_init" yaml:"kmeans_n_init"`
	KMeansMaxIter    int `mapstructure:"kmeans_max_iter" yaml:"kmeans_max_iter"`
	SilhouetteSample int `mapstructure:"silhouette_sample" yaml:"silhouette_sample"`
	Precision        int `mapstructure:"precision" yaml:"precision"`

	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`

	// Dashboard server
	ServerHost    string `mapstructure:"server_host" yaml:"server_host"`
	ServerPort    int    `mapstructure:"server_port" yaml:"server_port"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	Schema schema.Schema `mapstructure:"schema" yaml:"schema"`
}

// Dir returns ~/.edadash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edadash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edadash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first and never overrides
// variables that are already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDADASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := schema.Default()
	v.SetDefault("data_dir", ".")
	v.SetDefault("fraud_patterns", []string{"*fraud*.csv", "*credit*.csv", "*transaction*.csv", "creditcard.csv"})
	v.SetDefault("marketing_patterns", []string{"*marketing*.csv", "*campaign*.csv", "*customer*.csv", "marketing_campaign.csv"})
	v.SetDefault("max_rows", 50000)
	v.SetDefault("display_sample", 10000)
	v.SetDefault("seed", 42)
	v.SetDefault("clusters", 4)
	v.SetDefault("k_min", 2)
	v.SetDefault("k_max", 7)
	v.SetDefault("kmeans_n_init", 10)
	v.SetDefault("kmeans_max_iter", 300)
	v.SetDefault("silhouette_sample", 2000)
	v.SetDefault("precision", 2)
	v.SetDefault("export_dir", ".")
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8050)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("schema.spend_markers", def.SpendMarkers)
	v.SetDefault("schema.count_markers", def.CountMarkers)
	v.SetDefault("schema.purchase_markers", def.PurchaseMarkers)
	v.SetDefault("schema.recency_columns", def.RecencyColumns)
	v.SetDefault("schema.amount_columns", def.AmountColumns)
	v.SetDefault("schema.label_columns", def.LabelColumns)
	v.SetDefault("schema.label_name", def.LabelName)
	v.SetDefault("schema.time_columns", def.TimeColumns)
	v.SetDefault("schema.segment_names", def.SegmentNames)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a present but malformed file is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Schema = c.Schema.WithDefaults()
	return &c, nil
}

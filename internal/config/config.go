// Package config provides Viper-based hierarchical configuration for the
// application: defaults, an optional YAML file and environment variables,
// in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ncastro/comprobantes/internal/recerror"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	envOnce sync.Once
	// Logger is the shared logger instance configured from the loaded
	// configuration. Packages receive it through SetLogger injection.
	Logger = logrus.New()
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	DB struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"db" yaml:"db"`

	AI struct {
		Model   string `mapstructure:"model" yaml:"model"`
		APIKey  string `mapstructure:"api_key" yaml:"-"` // never serialized
		Workers int    `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"ai" yaml:"ai"`

	Classifier struct {
		BaseURL string `mapstructure:"base_url" yaml:"base_url"`
		APIKey  string `mapstructure:"api_key" yaml:"-"`
		Model   string `mapstructure:"model" yaml:"model"`
	} `mapstructure:"classifier" yaml:"classifier"`

	Server struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"server" yaml:"server"`

	ExcelOptions struct {
		SheetName string `mapstructure:"sheet_name" yaml:"sheet_name"`
		HeaderRow int    `mapstructure:"header_row" yaml:"header_row"`
		SkipRows  int    `mapstructure:"skip_rows" yaml:"skip_rows"`
	} `mapstructure:"excel_options" yaml:"excel_options"`

	ColumnMapping struct {
		Fecha string `mapstructure:"fecha" yaml:"fecha"`
		CUIT  string `mapstructure:"cuit" yaml:"cuit"`
		Monto string `mapstructure:"monto" yaml:"monto"`
	} `mapstructure:"column_mapping" yaml:"column_mapping"`

	DataFormats struct {
		// FechaFormat is a Go reference-time layout, e.g. "02/01/2006".
		FechaFormat             string `mapstructure:"fecha_format" yaml:"fecha_format"`
		MontoDecimalSeparator   string `mapstructure:"monto_decimal_separator" yaml:"monto_decimal_separator"`
		MontoThousandsSeparator string `mapstructure:"monto_thousands_separator" yaml:"monto_thousands_separator"`
	} `mapstructure:"data_formats" yaml:"data_formats"`

	Tolerances struct {
		FechaDias       int     `mapstructure:"fecha_dias" yaml:"fecha_dias"`
		MontoDiferencia float64 `mapstructure:"monto_diferencia" yaml:"monto_diferencia"`
	} `mapstructure:"tolerances" yaml:"tolerances"`

	Reconciliation struct {
		// IncludeReconciled keeps already reconciled receipts in the
		// candidate pool. Off by default: a reconciled receipt should not
		// absorb a second bank movement.
		IncludeReconciled bool `mapstructure:"include_reconciled" yaml:"include_reconciled"`
	} `mapstructure:"reconciliation" yaml:"reconciliation"`
}

// LoadEnv loads environment variables from a .env file if one exists in
// the working directory or its parent.
func LoadEnv() {
	envOnce.Do(func() {
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				return
			}
		}
		if err := godotenv.Load(envFile); err != nil {
			Logger.Warnf("Error loading .env file: %v", err)
			return
		}
		Logger.Debugf("Loaded environment variables from %s", envFile)
	})
}

// Load builds the configuration. When path is non-empty that exact file
// is required; a missing file is a ConfigError naming the expected path.
// With an empty path the standard locations are searched and defaults
// apply when nothing is found.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, &recerror.ConfigError{
				Path: path,
				Msg:  "copy config.yaml.example and adjust the values",
			}
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.comprobantes")
	}

	v.SetEnvPrefix("COMPROBANTES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, &recerror.ConfigError{Path: path, Msg: err.Error()}
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			Logger.Warnf("Error reading config file %s: %v", v.ConfigFileUsed(), err)
		}
	}

	// API keys always come from unprefixed environment variables.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		Logger.Warnf("Failed to bind GEMINI_API_KEY: %v", err)
	}
	if err := v.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY"); err != nil {
		Logger.Warnf("Failed to bind CLASSIFIER_API_KEY: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &recerror.ConfigError{Path: v.ConfigFileUsed(), Msg: err.Error()}
	}

	return &cfg, nil
}

// Default returns the configuration with only defaults applied. Used by
// the init-config command to write a starting config.yaml.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("db.path", "comprobantes.db")

	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.workers", 5)

	v.SetDefault("classifier.base_url", "http://127.0.0.1:1234/v1")
	v.SetDefault("classifier.model", "qwen/qwen3-vl-8b")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("excel_options.sheet_name", "")
	v.SetDefault("excel_options.header_row", 0)
	v.SetDefault("excel_options.skip_rows", 0)

	v.SetDefault("column_mapping.fecha", "Fecha")
	v.SetDefault("column_mapping.cuit", "CUIT")
	v.SetDefault("column_mapping.monto", "Monto")

	v.SetDefault("data_formats.fecha_format", "02/01/2006")
	v.SetDefault("data_formats.monto_decimal_separator", ",")
	v.SetDefault("data_formats.monto_thousands_separator", ".")

	v.SetDefault("tolerances.fecha_dias", 1)
	v.SetDefault("tolerances.monto_diferencia", 0.01)

	v.SetDefault("reconciliation.include_reconciled", false)
}

// ConfigureLogging applies the log section to the shared logger and
// returns it.
func (c *Config) ConfigureLogging() *logrus.Logger {
	level, err := logrus.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		Logger.Warnf("Invalid log level '%s', using 'info'", c.Log.Level)
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	if strings.ToLower(c.Log.Format) == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return Logger
}

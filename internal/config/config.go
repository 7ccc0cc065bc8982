package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Validate ValidateConfig `yaml:"validate" mapstructure:"validate"`
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
}

// OutputConfig configures how the run report is rendered.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json yaml"`
}

// ValidateConfig configures the validation run.
type ValidateConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=64"`
}

// GitHubConfig configures GitHub Actions integration.
type GitHubConfig struct {
	Annotations bool   `yaml:"annotations" mapstructure:"annotations"`
	StepSummary string `yaml:"step_summary" mapstructure:"step_summary"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"required"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName(".geofeed")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("output.format", "text")
	v.SetDefault("validate.concurrency", 1)
	v.SetDefault("github.annotations", os.Getenv("GITHUB_ACTIONS") == "true")
	v.SetDefault("github.step_summary", os.Getenv("GITHUB_STEP_SUMMARY"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Check validates field constraints on the loaded configuration.
func (c *Config) Check() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

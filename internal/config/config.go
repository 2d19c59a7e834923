package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the population table and the boundary features.
// Either location may be a local path or an http(s) URL.
type DataConfig struct {
	Population   string `yaml:"population" mapstructure:"population"`
	Boundaries   string `yaml:"boundaries" mapstructure:"boundaries"`
	NameProperty string `yaml:"name_property" mapstructure:"name_property"`
	Charset      string `yaml:"charset" mapstructure:"charset"`
}

// RenderConfig configures SVG output.
type RenderConfig struct {
	Width     int      `yaml:"width" mapstructure:"width"`
	Height    int      `yaml:"height" mapstructure:"height"`
	Padding   int      `yaml:"padding" mapstructure:"padding"`
	Colors    []string `yaml:"colors" mapstructure:"colors"`
	OutputDir string   `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// CacheConfig configures the rendered SVG cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
	TTLSecs    int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// FetchConfig configures downloads of remote data files.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultColors is the quartile palette, lightest first.
var DefaultColors = []string{"#DAD2F0", "#AE9AE8", "#654FA3", "#3D2A73"}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POPMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.population", "data/latam_population_2023.csv")
	v.SetDefault("data.boundaries", "data/latam.geojson")
	v.SetDefault("data.name_property", "sovereignt")
	v.SetDefault("data.charset", "")
	v.SetDefault("render.width", 660)
	v.SetDefault("render.height", 660)
	v.SetDefault("render.padding", 20)
	v.SetDefault("render.colors", DefaultColors)
	v.SetDefault("render.output_dir", "out")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.ttl_secs", 600)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is "render" or
// "serve"; every problem found is reported in one error.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "render":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Cache.MaxEntries < 0 || c.Cache.TTLSecs < 0 {
			errs = append(errs, "cache.max_entries and cache.ttl_secs must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.Data.Population) == "" {
		errs = append(errs, "data.population is required")
	}
	if strings.TrimSpace(c.Data.Boundaries) == "" {
		errs = append(errs, "data.boundaries is required")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Sprintf("render canvas must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	} else if c.Render.Padding < 0 || 2*c.Render.Padding >= c.Render.Width || 2*c.Render.Padding >= c.Render.Height {
		errs = append(errs, fmt.Sprintf("render.padding %d does not fit the canvas", c.Render.Padding))
	}
	if c.Fetch.TimeoutSecs < 0 || c.Fetch.MaxRetries < 0 || c.Fetch.RatePerSec < 0 {
		errs = append(errs, "fetch.timeout_secs, fetch.max_retries and fetch.rate_per_sec must be >= 0")
	}
	if len(c.Render.Colors) != 4 {
		errs = append(errs, fmt.Sprintf("render.colors needs 4 colors, got %d", len(c.Render.Colors)))
	}
	for _, col := range c.Render.Colors {
		if !hexColor.MatchString(col) {
			errs = append(errs, fmt.Sprintf("render.colors: invalid color %q", col))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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

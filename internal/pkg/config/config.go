package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Imagery   ImageryConfig   `mapstructure:"imagery"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Annotate  AnnotateConfig  `mapstructure:"annotate"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	HandlerTimeout int    `mapstructure:"handler_timeout"`
	AllowOrigins   string `mapstructure:"allow_origins"`
}

// ProviderConfig is the credential and endpoint of one third-party API.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ProvidersConfig struct {
	OpenRoute  ProviderConfig `mapstructure:"openroute"`
	Mapillary  ProviderConfig `mapstructure:"mapillary"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	GoogleMaps ProviderConfig `mapstructure:"googlemaps"`
}

type GeocodingConfig struct {
	// Provider is "openroute" or "google".
	Provider string `mapstructure:"provider"`
}

type RoutingConfig struct {
	// Format is the directions response format, "geojson" or "json".
	Format string `mapstructure:"format"`
}

type ImageryConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	HalfWidthM  float64       `mapstructure:"half_width_m"`
	SearchLimit int           `mapstructure:"search_limit"`
}

type VisionConfig struct {
	RatePerSecond float64  `mapstructure:"rate_per_second"`
	Burst         int      `mapstructure:"burst"`
	Models        []string `mapstructure:"models"`
}

type AnnotateConfig struct {
	Workers   int `mapstructure:"workers"`
	MaxPoints int `mapstructure:"max_points"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Credentials is the read-only set of provider keys handed to adapters at construction.
type Credentials struct {
	OpenRoute  string
	Mapillary  string
	Gemini     string
	GoogleMaps string
}

// Credentials returns a copy of the configured provider keys.
func (c *Config) Credentials() Credentials {
	return Credentials{
		OpenRoute:  c.Providers.OpenRoute.APIKey,
		Mapillary:  c.Providers.Mapillary.APIKey,
		Gemini:     c.Providers.Gemini.APIKey,
		GoogleMaps: c.Providers.GoogleMaps.APIKey,
	}
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.handler_timeout", 55)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("providers.openroute.base_url", "https://api.openrouteservice.org")
	v.SetDefault("providers.mapillary.base_url", "https://graph.mapillary.com")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("providers.googlemaps.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("geocoding.provider", "openroute")
	v.SetDefault("routing.format", "geojson")
	v.SetDefault("imagery.timeout", 5*time.Second)
	v.SetDefault("imagery.half_width_m", 500.0)
	v.SetDefault("imagery.search_limit", 10)
	v.SetDefault("vision.rate_per_second", 1.0)
	v.SetDefault("vision.burst", 2)
	v.SetDefault("vision.models", []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-2.0-flash-exp", "gemini-pro-vision"})
	v.SetDefault("annotate.workers", 4)
	v.SetDefault("annotate.max_points", 10)
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GREENROUTE_IMAGERY_TIMEOUT → imagery.timeout
	v.SetEnvPrefix("GREENROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional credential names win over the prefixed ones.
	_ = v.BindEnv("providers.openroute.api_key", "ORS_API_KEY", "GREENROUTE_PROVIDERS_OPENROUTE_API_KEY")
	_ = v.BindEnv("providers.mapillary.api_key", "MAPILLARY_ACCESS_TOKEN", "GREENROUTE_PROVIDERS_MAPILLARY_API_KEY")
	_ = v.BindEnv("providers.gemini.api_key", "GEMINI_API_KEY", "GREENROUTE_PROVIDERS_GEMINI_API_KEY")
	_ = v.BindEnv("providers.googlemaps.api_key", "GOOGLE_MAPS_API_KEY", "GREENROUTE_PROVIDERS_GOOGLEMAPS_API_KEY")
	_ = v.BindEnv("log.level", "LOG_LEVEL", "GREENROUTE_LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// Only the directions credential is mandatory; the others degrade features.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Providers.OpenRoute.APIKey == "" {
		errs = append(errs, "providers.openroute.api_key (ORS_API_KEY) is required")
	}
	switch c.Geocoding.Provider {
	case "openroute":
	case "google":
		if c.Providers.GoogleMaps.APIKey == "" {
			errs = append(errs, "geocoding.provider=google needs providers.googlemaps.api_key (GOOGLE_MAPS_API_KEY)")
		}
	default:
		errs = append(errs, fmt.Sprintf("geocoding.provider must be openroute or google, got %q", c.Geocoding.Provider))
	}
	if c.Routing.Format != "geojson" && c.Routing.Format != "json" {
		errs = append(errs, fmt.Sprintf("routing.format must be geojson or json, got %q", c.Routing.Format))
	}
	if c.Imagery.Timeout <= 0 {
		errs = append(errs, "imagery.timeout must be positive")
	}
	if c.Imagery.HalfWidthM <= 0 {
		errs = append(errs, "imagery.half_width_m must be positive")
	}
	if c.Vision.RatePerSecond < 0 {
		errs = append(errs, "vision.rate_per_second must not be negative")
	}
	if c.Annotate.Workers <= 0 {
		errs = append(errs, "annotate.workers must be positive")
	}
	if c.Annotate.MaxPoints < 2 {
		errs = append(errs, "annotate.max_points must be at least 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

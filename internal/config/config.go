package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the VK wall post source.
type SourceConfig struct {
	Token         string  `yaml:"token" mapstructure:"token"`
	Domain        string  `yaml:"domain" mapstructure:"domain"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	APIVersion    string  `yaml:"api_version" mapstructure:"api_version"`
	MaxPosts      int     `yaml:"max_posts" mapstructure:"max_posts"`
	PageSize      int     `yaml:"page_size" mapstructure:"page_size"`
	PageDelaySecs float64 `yaml:"page_delay_secs" mapstructure:"page_delay_secs"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Attempts      int     `yaml:"attempts" mapstructure:"attempts"`
}

// PageDelay is the minimum spacing between wall.get calls.
func (c SourceConfig) PageDelay() time.Duration { return seconds(c.PageDelaySecs) }

// Timeout is the per-request timeout.
func (c SourceConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// ExtractConfig configures post parsing.
type ExtractConfig struct {
	DefaultYear string   `yaml:"default_year" mapstructure:"default_year"`
	DefaultCity string   `yaml:"default_city" mapstructure:"default_city"`
	CityWords   []string `yaml:"city_words" mapstructure:"city_words"`
}

// GeocodeConfig configures the provider cascade.
type GeocodeConfig struct {
	Providers   []string       `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs int            `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Concurrency int            `yaml:"concurrency" mapstructure:"concurrency"`
	SaveLog     bool           `yaml:"save_log" mapstructure:"save_log"`
	ArcGIS      ProviderConfig `yaml:"arcgis" mapstructure:"arcgis"`
	Yandex      ProviderConfig `yaml:"yandex" mapstructure:"yandex"`
	Nominatim   ProviderConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Google      ProviderConfig `yaml:"google" mapstructure:"google"`
}

// Timeout bounds a single provider call.
func (c GeocodeConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// ProviderConfig holds one geocoding provider's credentials and throttle.
type ProviderConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	MinDelaySecs float64 `yaml:"min_delay_secs" mapstructure:"min_delay_secs"`
}

// MinDelay is the minimum spacing between two calls to the provider.
func (c ProviderConfig) MinDelay() time.Duration { return seconds(c.MinDelaySecs) }

// StoreConfig configures where events, the geocode cache and the outcome
// log are kept.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	EventsKey   string `yaml:"events_key" mapstructure:"events_key"`
	CacheKey    string `yaml:"cache_key" mapstructure:"cache_key"`
	LogKey      string `yaml:"log_key" mapstructure:"log_key"`
}

// ServerConfig configures the events HTTP server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins      []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RefreshIntervalMins int      `yaml:"refresh_interval_mins" mapstructure:"refresh_interval_mins"`
}

// MonitoringConfig configures run alerts.
type MonitoringConfig struct {
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	UnresolvedRateThreshold float64 `yaml:"unresolved_rate_threshold" mapstructure:"unresolved_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the environment names used by the original
// cron deployment.
var legacyEnv = map[string]string{
	"source.token":                     "VK_TOKEN",
	"source.domain":                    "VK_DOMAIN",
	"source.max_posts":                 "VK_MAX_POSTS",
	"source.page_delay_secs":           "VK_WAIT_REQ",
	"extract.default_year":             "YEAR_DEFAULT",
	"geocode.save_log":                 "GEOCODE_SAVE_LOG",
	"geocode.arcgis.min_delay_secs":    "ARCGIS_MIN_DELAY",
	"geocode.yandex.key":               "YANDEX_KEY",
	"geocode.yandex.min_delay_secs":    "YANDEX_MIN_DELAY",
	"geocode.nominatim.base_url":       "NOMINATIM_URL",
	"geocode.nominatim.user_agent":     "NOMINATIM_USER_AGENT",
	"geocode.nominatim.min_delay_secs": "NOMINATIM_MIN_DELAY",
}

const envPrefix = "EVENTMAP"

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	// Defaults
	v.SetDefault("source.domain", "meowafisha")
	v.SetDefault("source.base_url", "https://api.vk.ru/method")
	v.SetDefault("source.api_version", "5.199")
	v.SetDefault("source.max_posts", 50)
	v.SetDefault("source.page_size", 100)
	v.SetDefault("source.page_delay_secs", 1.1)
	v.SetDefault("source.timeout_secs", 20)
	v.SetDefault("source.attempts", 3)
	v.SetDefault("extract.default_year", strconv.Itoa(time.Now().Year()))
	v.SetDefault("extract.default_city", "Калининград")
	v.SetDefault("extract.city_words", []string{
		"калининград", "гурьевск", "светлогорск", "янтарный", "зеленоградск",
		"пионерский", "балтийск", "поселок", "пос.", "г.",
	})
	v.SetDefault("geocode.providers", []string{"arcgis", "yandex", "nominatim"})
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.save_log", true)
	v.SetDefault("geocode.arcgis.min_delay_secs", 1.0)
	v.SetDefault("geocode.yandex.min_delay_secs", 1.0)
	v.SetDefault("geocode.nominatim.min_delay_secs", 1.0)
	v.SetDefault("geocode.nominatim.user_agent", "meowafisha-bot")
	v.SetDefault("geocode.google.min_delay_secs", 0.1)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", ".")
	v.SetDefault("store.events_key", "events.json")
	v.SetDefault("store.cache_key", "geocode_cache.json")
	v.SetDefault("store.log_key", "geocode_log.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.unresolved_rate_threshold", 0.5)
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

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "file", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if len(c.Geocode.Providers) == 0 {
		return eris.New("config: geocode.providers must list at least one provider")
	}
	return nil
}

// ValidateSource checks the settings a fetch run cannot start without.
func (c *Config) ValidateSource() error {
	if c.Source.Token == "" {
		return eris.New("config: source.token is required (EVENTMAP_SOURCE_TOKEN or VK_TOKEN)")
	}
	if c.Source.PageSize <= 0 {
		return eris.New("config: source.page_size must be positive")
	}
	return nil
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.Source.Token = mask(c.Source.Token)
	c.Geocode.ArcGIS.Key = mask(c.Geocode.ArcGIS.Key)
	c.Geocode.Yandex.Key = mask(c.Geocode.Yandex.Key)
	c.Geocode.Nominatim.Key = mask(c.Geocode.Nominatim.Key)
	c.Geocode.Google.Key = mask(c.Geocode.Google.Key)
	c.Store.DatabaseURL = mask(c.Store.DatabaseURL)
	c.Monitoring.WebhookURL = mask(c.Monitoring.WebhookURL)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
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

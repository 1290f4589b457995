package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cron       CronConfig       `mapstructure:"cron"`
	Engine     EngineConfig     `mapstructure:"engine"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	P2P        P2PConfig        `mapstructure:"p2p"`
	Ads        AdsConfig        `mapstructure:"ads"`
	Alert      AlertConfig      `mapstructure:"alert"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File enables a rotated file sink next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AutoPrice string `mapstructure:"auto_price"`
}

type EngineConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	MaxSearchPages int           `mapstructure:"max_search_pages"`
	SearchPageSize int           `mapstructure:"search_page_size"`
	ISTOffset      string        `mapstructure:"ist_offset"`
	StableAsset    string        `mapstructure:"stable_asset"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	DryRun         bool          `mapstructure:"dry_run"`
}

type MarketDataConfig struct {
	FiatRateURL        string        `mapstructure:"fiat_rate_url"`
	FiatSanityFloor    float64       `mapstructure:"fiat_sanity_floor"`
	FiatDefaultRate    float64       `mapstructure:"fiat_default_rate"`
	FiatFallbackSample int           `mapstructure:"fiat_fallback_sample"`
	SpotTickerURL      string        `mapstructure:"spot_ticker_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type P2PConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AdsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AlertConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`
	PaaSBaseURL      string `mapstructure:"paas_base_url"`
	PaaSAPIKey       string `mapstructure:"paas_api_key"`
	PaaSAgent        string `mapstructure:"paas_agent"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 200)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.slow_query", "500ms")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.auto_price", "0 */2 * * * *")

	v.SetDefault("engine.update_interval", "1500ms")
	v.SetDefault("engine.max_search_pages", 25)
	v.SetDefault("engine.search_page_size", 20)
	v.SetDefault("engine.ist_offset", "+05:30")
	v.SetDefault("engine.stable_asset", "USDT")
	v.SetDefault("engine.lock_ttl", "5m")
	v.SetDefault("engine.dry_run", false)

	v.SetDefault("market_data.fiat_rate_url", "https://api.coingecko.com/api/v3/simple/price")
	v.SetDefault("market_data.fiat_sanity_floor", 80)
	v.SetDefault("market_data.fiat_default_rate", 92)
	v.SetDefault("market_data.fiat_fallback_sample", 10)
	v.SetDefault("market_data.spot_ticker_url", "https://api.binance.com/api/v3/ticker/price")
	v.SetDefault("market_data.timeout", "10s")

	v.SetDefault("p2p.base_url", "https://p2p.binance.com")
	v.SetDefault("p2p.timeout", "15s")

	v.SetDefault("ads.base_url", "")
	v.SetDefault("ads.api_key", "")
	v.SetDefault("ads.api_secret", "")
	v.SetDefault("ads.timeout", "15s")

	v.SetDefault("alert.telegram_bot_token", "")
	v.SetDefault("alert.telegram_chat_id", 0)
	v.SetDefault("alert.paas_base_url", "")
	v.SetDefault("alert.paas_api_key", "")
	v.SetDefault("alert.paas_agent", "auto-price-engine")
}

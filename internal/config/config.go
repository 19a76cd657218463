package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketScanner/internal/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Log logger.Config `yaml:"log"`

	DataSource struct {
		Provider       string        `yaml:"provider" default:"yahoo" validate:"oneof=yahoo rest static"`
		BaseURL        string        `yaml:"base_url" validate:"required_if=Provider rest"`
		APIKey         string        `yaml:"api_key"`
		Proxy          string        `yaml:"proxy"`
		RateLimitDelay time.Duration `yaml:"rate_limit_delay" default:"100ms" validate:"gte=0"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s" validate:"gt=0"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"5m" validate:"gt=0"`
		MaxRetries     uint64        `yaml:"max_retries" default:"2"`
		StaticPrice    float64       `yaml:"static_price" default:"100"`
	} `yaml:"data_source"`

	Universe struct {
		Symbols []string `yaml:"symbols"`
		Limit   int      `yaml:"limit" default:"50" validate:"gte=0"`
	} `yaml:"universe"`

	Scanners []string `yaml:"scanners"`

	Schedule struct {
		Cron            string `yaml:"cron" default:"0 */15 * * * *"`
		MarketHoursOnly bool   `yaml:"market_hours_only"`
		RunOnStart      bool   `yaml:"run_on_start" default:"true"`
	} `yaml:"schedule"`

	Telegram struct {
		Enabled     bool                `yaml:"enabled"`
		BotToken    string              `yaml:"bot_token" validate:"required_if=Enabled true"`
		ChatID      string              `yaml:"chat_id" validate:"required_if=Enabled true"`
		MinInterval time.Duration       `yaml:"min_interval" default:"15m"`
		Polling     bool                `yaml:"polling" default:"true"`
		Rules       map[string][]string `yaml:"rules"`
	} `yaml:"telegram"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/market_scanner.db"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" validate:"gte=0"`
		Prefix   string        `yaml:"key_prefix" default:"scanner"`
		TTL      time.Duration `yaml:"ttl" default:"30m"`
	} `yaml:"redis"`

	HTTP struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"http"`

	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
}

var validate = validator.New()

// Load applies struct defaults, then the YAML file, then environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if len(cfg.Universe.Symbols) == 0 {
		cfg.Universe.Symbols = DefaultUniverse(cfg.Universe.Limit)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Universe.Symbols = splitList(v)
	}
	if v := os.Getenv("SCANNERS"); v != "" {
		cfg.Scanners = splitList(v)
	}
	if v := os.Getenv("MARKET_HOURS_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.MarketHoursOnly = b
		}
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		cfg.Telegram.Enabled = true
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks field constraints declared on the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// nseStocks is the default instrument list, led by a crypto pair that also
// trades outside NSE hours.
var nseStocks = []string{
	"BTC-USD", "RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "BHARTIARTL.NS", "ICICIBANK.NS",
	"INFOSYS.NS", "SBIN.NS", "LICI.NS", "ITC.NS", "HINDUNILVR.NS",
	"LT.NS", "KOTAKBANK.NS", "HCLTECH.NS", "MARUTI.NS", "SUNPHARMA.NS",
	"TITAN.NS", "ONGC.NS", "NTPC.NS", "ASIANPAINT.NS", "M&M.NS",
	"NESTLEIND.NS", "TATAMOTORS.NS", "ULTRACEMCO.NS", "ADANIPORTS.NS",
	"WIPRO.NS", "POWERGRID.NS", "BAJFINANCE.NS", "COALINDIA.NS",
	"HDFCLIFE.NS", "GRASIM.NS", "TECHM.NS", "INDUSINDBK.NS",
	"TATASTEEL.NS", "BAJAJFINSV.NS", "AXISBANK.NS", "CIPLA.NS",
	"EICHERMOT.NS", "DRREDDY.NS", "JSWSTEEL.NS", "BRITANNIA.NS",
	"DIVISLAB.NS", "ADANITRANS.NS", "APOLLOHOSP.NS", "HINDALCO.NS",
	"HEROMOTOCO.NS", "BAJAJ-AUTO.NS", "GODREJCP.NS", "SIEMENS.NS",
	"PIDILITIND.NS", "VEDL.NS", "SHREECEM.NS", "DABUR.NS",
	"BERGEPAINT.NS", "MARICO.NS", "COLPAL.NS", "BANKBARODA.NS",
	"TATACONSUM.NS", "AMBUJACEM.NS", "LUPIN.NS", "GAIL.NS",
	"TRENT.NS", "TORNTPHARM.NS", "HAVELLS.NS", "IDEA.NS",
	"MCDOWELL-N.NS", "PAGEIND.NS", "LTIM.NS", "SBILIFE.NS",
	"MOTHERSON.NS", "ADANIENT.NS", "JUBLFOOD.NS", "CONCOR.NS",
	"BEL.NS", "INDUSTOWER.NS", "MPHASIS.NS", "INDIGO.NS",
	"NAUKRI.NS", "BOSCHLTD.NS", "LICHSGFIN.NS", "PNB.NS",
	"OFSS.NS", "PERSISTENT.NS", "POLYCAB.NS", "ALKEM.NS",
	"INDIANB.NS", "CUMMINSIND.NS", "BIOCON.NS", "BALKRISIND.NS",
	"CHAMBLFERT.NS", "MRF.NS", "AUROPHARMA.NS", "RBLBANK.NS",
	"CHOLAFIN.NS", "GMRINFRA.NS", "FEDERALBNK.NS", "MANAPPURAM.NS",
	"RECLTD.NS", "NATIONALUM.NS", "NMDC.NS", "SAIL.NS",
	"JINDALSTEL.NS", "ZEEL.NS", "ASHOKLEY.NS", "VOLTAS.NS",
}

// DefaultUniverse returns the first limit default symbols, all of them when
// limit is not positive.
func DefaultUniverse(limit int) []string {
	if limit <= 0 || limit > len(nseStocks) {
		limit = len(nseStocks)
	}
	return append([]string(nil), nseStocks[:limit]...)
}

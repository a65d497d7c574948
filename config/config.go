package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	Telegram          Telegram
	Redis             Redis
	API               API
	Cache             Cache
	Jobs              Jobs
	GoogleDrive       GoogleDrive
	Game              Game
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"30m"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN,required,notEmpty"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"52428800"`
}

type Redis struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug        bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout      time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	AlphaVantage AlphaVantage
}

type AlphaVantage struct {
	Url    string `env:"ALPHA_VANTAGE_API_URL" envDefault:"https://www.alphavantage.co"`
	ApiKey string `env:"ALPHA_VANTAGE_API_KEY,required,notEmpty"`
}

type Cache struct {
	QuoteExpiration time.Duration `env:"CACHE_QUOTE_EXPIRATION" envDefault:"1m"`
}

type Jobs struct {
	ExpireSessionsInterval   time.Duration `env:"EXPIRE_SESSIONS_JOB_INTERVAL" envDefault:"1m"`
	DeleteDriveFilesInterval time.Duration `env:"DELETE_DRIVE_FILES_JOB_INTERVAL" envDefault:"1h"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

type Game struct {
	StartingBalance           decimal.Decimal `env:"STARTING_BALANCE" envDefault:"10000"`
	TradeHistoryLimit         int             `env:"TRADE_HISTORY_LIMIT" envDefault:"100"`
	PortfolioPriceConcurrency int             `env:"PORTFOLIO_PRICE_CONCURRENCY" envDefault:"4"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	if !cfg.Game.StartingBalance.IsPositive() {
		log.Fatalf("parse config error: STARTING_BALANCE must be positive, got %s", cfg.Game.StartingBalance)
	}

	return cfg
}

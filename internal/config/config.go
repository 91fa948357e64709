package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/IBM/sarama"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv       string `env:"APP_ENV" envDefault:"local"`
	Port         string `env:"PORT" envDefault:"8080"`
	DBDSN        string `env:"DB_DSN" envDefault:"garagehub.db"` // sqlite file in project root
	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"./web/templates"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"./web/static"`
	Organization string `env:"ORG_NAME" envDefault:"Main Street Garage"`

	LogFile  string `env:"LOG_FILE" envDefault:"./garagehub.log"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`

	// Requests per minute per client; zero disables the limiter.
	RateLimit int `env:"RATE_LIMIT" envDefault:"120"`
	// Login attempts per client per 10 minutes.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" envDefault:"5"`

	// Zero disables the expiry sweep.
	QuoteExpiryInterval time.Duration `env:"QUOTE_EXPIRY_INTERVAL" envDefault:"1h"`

	Kafka Kafka `envPrefix:"KAFKA_"`
}

// Kafka activity publishing is enabled only when brokers are set.
type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"garagehub.activity"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// ProducerConfig is tuned for the sync activity publisher: every send waits
// for all in-sync replicas and reports success.
func (k Kafka) ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V4_0_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	return cfg
}

// Load reads the environment, optionally seeded from a .env file when APP_ENV=local.
func Load(path ...string) (Config, error) {
	const op = "config.Load"

	if os.Getenv("APP_ENV") == "" || os.Getenv("APP_ENV") == "local" {
		if err := godotenv.Load(path...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%s: load .env: %w", op, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

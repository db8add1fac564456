package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type DB struct {
	Host     string `env:"DB_HOST" envDefault:"postgres"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"program"`
	Password string `env:"DB_PASSWORD" envDefault:"test"`
	Name     string `env:"DB_NAME"`
}

func (d DB) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

// Service is the shared configuration of the store services.
type Service struct {
	Addr      string `env:"ADDR"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"library-dev-secret"`
	DB        DB
}

func LoadService(defaultAddr, defaultDBName string) (Service, error) {
	var cfg Service
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = defaultDBName
	}
	return cfg, nil
}

type Gateway struct {
	Addr          string `env:"GATEWAY_ADDR" envDefault:":8080"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"library-dev-secret"`
	CatalogURL    string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:8060"`
	MembershipURL string `env:"MEMBERSHIP_SERVICE_URL" envDefault:"http://localhost:8050"`
	LoanURL       string `env:"LOAN_SERVICE_URL" envDefault:"http://localhost:8070"`
	AuthURL       string `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8040"`

	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	BreakerMaxFailures int           `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerCooldown    time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
	RetryBase          time.Duration `env:"RETRY_BASE" envDefault:"5s"`
	RetryMaxAttempts   int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
}

func LoadGateway() (Gateway, error) {
	var cfg Gateway
	err := env.Parse(&cfg)
	return cfg, err
}

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/server"
	"github.com/JaePyJs/CLMS-sub014/pkg/kafka"
	"github.com/JaePyJs/CLMS-sub014/pkg/logger"
	"github.com/JaePyJs/CLMS-sub014/pkg/postgres"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

type Circulation struct {
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`
	GracePeriod     time.Duration `envconfig:"EXPIRY_GRACE" default:"5m"`
	MaxOpenSessions int           `envconfig:"MAX_OPEN_SESSIONS" default:"5"`
	FineCapCents    int64         `envconfig:"FINE_CAP_CENTS" default:"2000"`
	LoanDays        int           `envconfig:"DEFAULT_LOAN_DAYS" default:"14"`
	SessionMinutes  int           `envconfig:"DEFAULT_SESSION_MINUTES" default:"120"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	EventBuffer     int           `envconfig:"EVENT_BUFFER" default:"64"`
}

type Config struct {
	Server      server.Config
	Database    postgres.Config
	Kafka       kafka.Config
	Circulation Circulation
	Log         logger.Log
}

var (
	once sync.Once
	cfg  Config
)

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

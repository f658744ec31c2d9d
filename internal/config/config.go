package config

import (
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	defaultRegion          = "us-east-1"
	defaultMaxRetries      = 0
	defaultLogLevel        = "info"
	defaultHTTPAddr        = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds everything the product functions read from the environment.
type Config struct {
	TableName        string
	Region           string
	DynamoDBEndpoint string
	MaxRetries       int
	LogLevel         string
	LogPretty        bool
	HTTPAddr         string
	ShutdownTimeout  time.Duration
}

// Logging is the part of the configuration every function needs, including
// the stream consumer which never touches the table.
type Logging struct {
	Level  string
	Pretty bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("AWS_REGION", defaultRegion)
	v.SetDefault("DYNAMODB_MAX_RETRIES", defaultMaxRetries)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("HTTP_ADDR", defaultHTTPAddr)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	v.AutomaticEnv()
	return v
}

// LoadLogging reads LOG_LEVEL and LOG_PRETTY only. It never fails.
func LoadLogging() Logging {
	v := newViper()
	return Logging{
		Level:  v.GetString("LOG_LEVEL"),
		Pretty: v.GetBool("LOG_PRETTY"),
	}
}

// Load reads the configuration from environment variables. PRODUCTS_TABLE is
// required; TESTS_TABLE is still honoured for stacks deployed with the old name.
func Load() (Config, error) {
	v := newViper()

	cfg := Config{
		TableName:        v.GetString("PRODUCTS_TABLE"),
		Region:           v.GetString("AWS_REGION"),
		DynamoDBEndpoint: v.GetString("DYNAMODB_ENDPOINT"),
		MaxRetries:       v.GetInt("DYNAMODB_MAX_RETRIES"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogPretty:        v.GetBool("LOG_PRETTY"),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.TableName == "" {
		cfg.TableName = v.GetString("TESTS_TABLE")
	}

	if cfg.TableName == "" {
		return Config{}, errors.New("PRODUCTS_TABLE is required")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, errors.New("DYNAMODB_MAX_RETRIES must not be negative")
	}

	return cfg, nil
}

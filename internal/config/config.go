package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
}

type ServerConfig struct {
	Port         int     `mapstructure:"port"`
	ReadTimeout  int     `mapstructure:"read_timeout"`
	WriteTimeout int     `mapstructure:"write_timeout"`
	IdleTimeout  int     `mapstructure:"idle_timeout"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	RateBurst    int     `mapstructure:"rate_burst"`
}

type CorrelationConfig struct {
	// Header renames both the inbound lookup key and the outbound header.
	Header string `mapstructure:"header"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type AuthConfig struct {
	Users  []UserConfig `mapstructure:"users"`
	Tokens []string     `mapstructure:"tokens"`
}

type UserConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// KafkaConfig configures the optional publish bridge. Leaving Brokers empty
// disables publishing entirely.
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	SASLUsername     string   `mapstructure:"sasl_username"`
	SASLPassword     string   `mapstructure:"sasl_password"`
	SASLMechanism    string   `mapstructure:"sasl_mechanism"`
	SecurityProtocol string   `mapstructure:"security_protocol"`
	Acks             string   `mapstructure:"acks"`
	Retries          int      `mapstructure:"retries"`
	CompressionType  string   `mapstructure:"compression_type"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/corrgate")
	}

	setDefaults(v)
	setEnvBindings(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 1)

	v.SetDefault("correlation.header", "Correlation-ID")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.acks", "all")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("kafka.compression_type", "snappy")
	v.SetDefault("kafka.sasl_mechanism", "PLAIN")
	v.SetDefault("kafka.security_protocol", "PLAINTEXT")
}

func setEnvBindings(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server rate_limit cannot be negative: %f", cfg.Server.RateLimit)
	}

	header := cfg.Correlation.Header
	if header == "" {
		return fmt.Errorf("correlation header name cannot be empty")
	}
	if strings.ContainsAny(header, " \t:") {
		return fmt.Errorf("correlation header name %q is not a valid HTTP field name", header)
	}

	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}

	for _, b := range cfg.Kafka.Brokers {
		if strings.Contains(b, "REPLACE_VIA") {
			return fmt.Errorf("kafka broker %q looks like an un-replaced placeholder — set KAFKA_BROKERS", b)
		}
	}

	return nil
}

// PublishingEnabled reports whether the Kafka publish bridge is configured.
func (c *Config) PublishingEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// KafkaConfigMap translates the Kafka section into the key/value form the
// producer expects.
func (c *Config) KafkaConfigMap() map[string]any {
	config := make(map[string]any)

	config["bootstrap.servers"] = strings.Join(c.Kafka.Brokers, ",")

	if c.Kafka.SASLUsername != "" && c.Kafka.SASLPassword != "" {
		config["sasl.username"] = c.Kafka.SASLUsername
		config["sasl.password"] = c.Kafka.SASLPassword
		config["sasl.mechanism"] = c.Kafka.SASLMechanism
		config["security.protocol"] = c.Kafka.SecurityProtocol
	}

	config["acks"] = c.Kafka.Acks
	config["retries"] = c.Kafka.Retries
	config["compression.type"] = c.Kafka.CompressionType

	return config
}

// BuildLogger constructs the process logger from the logging section.
func (c LoggingConfig) BuildLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", c.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

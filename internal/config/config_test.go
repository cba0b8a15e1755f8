package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a temp dir so no config.yaml is found.
	dir := t.TempDir()
	orig, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(orig) }()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Default port should be 8080, got %d", cfg.Server.Port)
	}

	if cfg.Correlation.Header != "Correlation-ID" {
		t.Errorf("Default correlation header should be 'Correlation-ID', got %s", cfg.Correlation.Header)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Default logging level should be 'info', got %s", cfg.Logging.Level)
	}

	if cfg.PublishingEnabled() {
		t.Error("Publishing should be disabled with no brokers configured")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	orig, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(orig) }()

	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("CORRELATION_HEADER", "X-Trace-Token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Port should be 9999 from env, got %d", cfg.Server.Port)
	}

	if cfg.Correlation.Header != "X-Trace-Token" {
		t.Errorf("Header should be 'X-Trace-Token' from env, got %s", cfg.Correlation.Header)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := []byte(`
server:
  port: 3000
  rate_limit: 50
correlation:
  header: X-Correlation-ID
kafka:
  brokers:
    - broker1:9092
    - broker2:9092
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Port should be 3000 from file, got %d", cfg.Server.Port)
	}

	if cfg.Server.RateLimit != 50 {
		t.Errorf("Rate limit should be 50 from file, got %f", cfg.Server.RateLimit)
	}

	if cfg.Correlation.Header != "X-Correlation-ID" {
		t.Errorf("Header should be 'X-Correlation-ID' from file, got %s", cfg.Correlation.Header)
	}

	if !cfg.PublishingEnabled() {
		t.Error("Publishing should be enabled with brokers configured")
	}

	// Defaults still apply for fields not in the file.
	if cfg.Kafka.CompressionType != "snappy" {
		t.Errorf("Default compression_type should be 'snappy', got %s", cfg.Kafka.CompressionType)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := []byte(`
server:
  port: 3000
correlation:
  header: X-From-File
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_PORT", "5555")
	t.Setenv("CORRELATION_HEADER", "X-From-Env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 5555 {
		t.Errorf("Env should override file port, got %d", cfg.Server.Port)
	}

	if cfg.Correlation.Header != "X-From-Env" {
		t.Errorf("Env should override file header, got %s", cfg.Correlation.Header)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{Port: 0},
		Correlation: CorrelationConfig{Header: "Correlation-ID"},
		Logging:     LoggingConfig{Level: "info"},
	}

	if err := validate(cfg); err == nil {
		t.Error("Should fail with invalid port")
	}

	cfg.Server.Port = 70000
	if err := validate(cfg); err == nil {
		t.Error("Should fail with port > 65535")
	}
}

func TestValidate_InvalidHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"embedded space", "Correlation ID"},
		{"colon", "Correlation:ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:      ServerConfig{Port: 8080},
				Correlation: CorrelationConfig{Header: tt.header},
				Logging:     LoggingConfig{Level: "info"},
			}

			if err := validate(cfg); err == nil {
				t.Errorf("Should fail with header %q", tt.header)
			}
		})
	}
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{Port: 8080},
		Correlation: CorrelationConfig{Header: "Correlation-ID"},
		Logging:     LoggingConfig{Level: "verbose"},
	}

	if err := validate(cfg); err == nil {
		t.Error("Should fail with unknown logging level")
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{Port: 8080, RateLimit: -1},
		Correlation: CorrelationConfig{Header: "Correlation-ID"},
		Logging:     LoggingConfig{Level: "info"},
	}

	if err := validate(cfg); err == nil {
		t.Error("Should fail with negative rate limit")
	}
}

func TestValidate_PlaceholderBroker(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{Port: 8080},
		Correlation: CorrelationConfig{Header: "Correlation-ID"},
		Logging:     LoggingConfig{Level: "info"},
		Kafka:       KafkaConfig{Brokers: []string{"REPLACE_VIA_ENV_KAFKA_BROKERS"}},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("Should fail with placeholder broker")
	}
	if err != nil && !strings.Contains(err.Error(), "REPLACE_VIA") {
		t.Errorf("Error should mention REPLACE_VIA, got: %v", err)
	}
}

func TestKafkaConfigMap(t *testing.T) {
	tests := []struct {
		name   string
		kafka  KafkaConfig
		checks map[string]any
	}{
		{
			name: "basic config",
			kafka: KafkaConfig{
				Brokers:         []string{"localhost:9092"},
				Acks:            "all",
				Retries:         3,
				CompressionType: "snappy",
			},
			checks: map[string]any{
				"bootstrap.servers": "localhost:9092",
				"acks":              "all",
			},
		},
		{
			name: "with SASL",
			kafka: KafkaConfig{
				Brokers:          []string{"broker:9092"},
				SASLUsername:     "user",
				SASLPassword:     "pass",
				SASLMechanism:    "PLAIN",
				SecurityProtocol: "SASL_SSL",
			},
			checks: map[string]any{
				"sasl.username":     "user",
				"sasl.password":     "pass",
				"sasl.mechanism":    "PLAIN",
				"security.protocol": "SASL_SSL",
			},
		},
		{
			name: "multiple brokers",
			kafka: KafkaConfig{
				Brokers: []string{"broker1:9092", "broker2:9092", "broker3:9092"},
			},
			checks: map[string]any{
				"bootstrap.servers": "broker1:9092,broker2:9092,broker3:9092",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Kafka: tt.kafka}
			configMap := cfg.KafkaConfigMap()

			for key, expected := range tt.checks {
				if got := configMap[key]; got != expected {
					t.Errorf("KafkaConfigMap[%s] = %v, want %v", key, got, expected)
				}
			}
		})
	}
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggingConfig
		wantErr bool
	}{
		{"production info", LoggingConfig{Level: "info"}, false},
		{"development debug", LoggingConfig{Level: "debug", Development: true}, false},
		{"unknown level", LoggingConfig{Level: "verbose"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := tt.cfg.BuildLogger()
			if tt.wantErr {
				if err == nil {
					t.Error("BuildLogger() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildLogger() error = %v", err)
			}
			if logger == nil {
				t.Error("BuildLogger() returned nil logger")
			}
		})
	}
}

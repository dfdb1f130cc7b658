package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const defaultAssistantTimeout = 10 * time.Second

type AssistantConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether an assistant endpoint is configured. The server
// runs without assistant replies when it is not.
func (a AssistantConfig) Enabled() bool {
	return a.BaseURL != ""
}

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	Assistant      AssistantConfig
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, assistant AssistantConfig) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if assistant.Enabled() && assistant.Model == "" {
		return nil, fmt.Errorf("assistant model cannot be empty when assistant is configured")
	}
	if assistant.Timeout <= 0 {
		assistant.Timeout = defaultAssistantTimeout
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		Assistant:      assistant,
	}, nil
}

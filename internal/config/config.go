// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	// DBPath is the local campaign database. Ignored when
	// CampaignStoreURL points at a remote persistence backend.
	DBPath           string
	CampaignStoreURL string

	ChatBackendURL string

	Wallet WalletConfig
}

// WalletConfig holds custodial wallet settings.
type WalletConfig struct {
	APIBaseURL string
	// WalletID identifies the payer wallet used for campaign charges.
	WalletID string
	// ReceiverAddress is the merchant address campaign payments go to.
	ReceiverAddress string
	TokenID         string
	PollInterval    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	pollSeconds := getEnvInt("BALANCE_POLL_INTERVAL_SECONDS", 30)
	if pollSeconds <= 0 {
		pollSeconds = 30
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/campaigns.db"),
		CampaignStoreURL: getEnv("CAMPAIGN_STORE_URL", ""),
		ChatBackendURL:   getEnv("CHAT_BACKEND_URL", "http://localhost:5000/api"),
		Wallet: WalletConfig{
			APIBaseURL:      getEnv("WALLET_API_URL", "http://localhost:5000/api"),
			WalletID:        getEnv("WALLET_ID", ""),
			ReceiverAddress: getEnv("RECEIVER_ADDRESS", ""),
			TokenID:         getEnv("TOKEN_ID", ""),
			PollInterval:    time.Duration(pollSeconds) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.CampaignStoreURL == "" && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when no CAMPAIGN_STORE_URL is set")
	}
	if c.ChatBackendURL == "" {
		return fmt.Errorf("CHAT_BACKEND_URL cannot be empty")
	}
	if c.Wallet.APIBaseURL == "" {
		return fmt.Errorf("WALLET_API_URL cannot be empty")
	}
	return nil
}

// PaymentsConfigured reports whether wallet payments can be executed.
// Without a wallet id and receiver the chat flow still works; Pay calls
// will fail at the transfer step.
func (c *Config) PaymentsConfigured() bool {
	return c.Wallet.WalletID != "" && c.Wallet.ReceiverAddress != "" && c.Wallet.TokenID != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"

	"cct-server/cct"
)

// Config holds all configurable server parameters.
type Config struct {
	Port        int    `json:"port"`
	StaticRoot  string `json:"static_root"`
	ServiceName string `json:"service_name"`

	// DatabaseURL enables the trial result archive; empty disables it.
	DatabaseURL string `json:"database_url"`
	// AuthBaseURL enables participant token validation; empty disables it.
	AuthBaseURL string `json:"auth_base_url"`

	LogLevel           string `json:"log_level"`
	MaxMessageBytes    int    `json:"max_message_bytes"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec"`

	// Trial holds the defaults for trials started without overrides.
	Trial cct.Config `json:"trial"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Port:               3000,
		StaticRoot:         ".",
		ServiceName:        "plugin-hosting-service",
		LogLevel:           "info",
		MaxMessageBytes:    4096,
		ShutdownTimeoutSec: 10,
		Trial:              cct.DefaultConfig(),
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse %s: %v", path, err)
		}
	}

	overrideInt(&cfg.Port, "PORT")
	overrideString(&cfg.StaticRoot, "STATIC_ROOT")
	overrideString(&cfg.ServiceName, "SERVICE_NAME")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideInt(&cfg.MaxMessageBytes, "MAX_MESSAGE_BYTES")
	overrideInt(&cfg.ShutdownTimeoutSec, "SHUTDOWN_TIMEOUT_SEC")
	overrideInt(&cfg.Trial.NumCards, "CCT_NUM_CARDS")
	overrideInt(&cfg.Trial.NumLossCards, "CCT_NUM_LOSS_CARDS")
	overrideInt(&cfg.Trial.GainValue, "CCT_GAIN_VALUE")
	overrideInt(&cfg.Trial.LossValue, "CCT_LOSS_VALUE")
	overrideBool(&cfg.Trial.Hot, "CCT_HOT")
	overrideBool(&cfg.Trial.ImmediateFeedback, "CCT_IMMEDIATE_FEEDBACK")
	overrideString(&cfg.Trial.StopButtonLabel, "CCT_STOP_BUTTON_LABEL")

	cfg.AuthBaseURL = strings.TrimRight(cfg.AuthBaseURL, "/")
	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*field = b
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

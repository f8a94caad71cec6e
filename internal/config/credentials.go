package config

import (
	"fmt"
	"os"
)

// Environment variables consulted when a credentials field is left empty.
const (
	EnvDevKey       = "OSKI_DEV_KEY"
	EnvEngineID     = "OSKI_ENGINE_ID"
	EnvSMTPPassword = "OSKI_SMTP_PASSWORD"
)

// Keys holds Custom Search API credentials.
type Keys struct {
	DevKey   string `yaml:"dev_key"`
	EngineID string `yaml:"engine_id"`
}

// NotifyParams holds email notification settings.
type NotifyParams struct {
	SubscrFile string `yaml:"subscr_file"`
	User       string `yaml:"user"`
	Pwd        string `yaml:"pwd"`
	Host       string `yaml:"host"`
	From       string `yaml:"from"`
	Port       int    `yaml:"port"`
}

// LoadKeys reads the API key file. Empty fields fall back to the environment.
func LoadKeys(filepath string) (*Keys, error) {
	var keys Keys
	if err := decodeFile(filepath, &keys); err != nil {
		return nil, err
	}

	if keys.DevKey == "" {
		keys.DevKey = os.Getenv(EnvDevKey)
	}

	if keys.EngineID == "" {
		keys.EngineID = os.Getenv(EnvEngineID)
	}

	return &keys, nil
}

// Validate checks that both credentials are present.
func (k *Keys) Validate() error {
	if k.DevKey == "" {
		return fmt.Errorf("%w: %w", ErrConfig, ErrMissingDevKey)
	}

	if k.EngineID == "" {
		return fmt.Errorf("%w: %w", ErrConfig, ErrMissingEngineID)
	}

	return nil
}

// LoadNotifyParams reads and validates the notification settings file.
func LoadNotifyParams(filepath string) (*NotifyParams, error) {
	var params NotifyParams
	if err := decodeFile(filepath, &params); err != nil {
		return nil, err
	}

	if params.Pwd == "" {
		params.Pwd = os.Getenv(EnvSMTPPassword)
	}

	if params.Host == "" {
		params.Host = defaultSMTPHost
	}

	if params.Port == 0 {
		params.Port = defaultSMTPPort
	}

	if params.From == "" {
		params.From = params.User
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, filepath, err)
	}

	return &params, nil
}

// Validate validates the notification settings.
func (p *NotifyParams) Validate() error {
	if p.SubscrFile == "" {
		return ErrMissingSubscribersFile
	}

	if p.User == "" {
		return ErrMissingSMTPUser
	}

	if p.Port < 1 || p.Port > 65535 {
		return ErrInvalidSMTPPort
	}

	return nil
}

// Addr returns the SMTP server address.
func (p *NotifyParams) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

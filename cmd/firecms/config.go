package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/jinbe/firecms/storage/firebasestore"
	"github.com/jinbe/firecms/storage/miniostore"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Collections string `env:"FIRECMS_COLLECTIONS" envDefault:"collections.yaml" validate:"required"`
	Storage     string `env:"FIRECMS_STORAGE" envDefault:"memory" validate:"oneof=memory minio firebase"`
	Language    string `env:"FIRECMS_LANG" envDefault:"en" validate:"oneof=en ja"`
	LogFile     string `env:"FIRECMS_LOG_FILE"`

	Minio    miniostore.Config    `validate:"-"`
	Firebase firebasestore.Config `validate:"-"`
}

var validate = validator.New()

// loadConfig applies envFile, when present, then parses and validates the
// environment. A missing default .env file is not an error.
func loadConfig(envFile string, explicit bool) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// backend sections are only required when selected
	switch cfg.Storage {
	case "minio":
		if err := env.Parse(&cfg.Minio); err != nil {
			return nil, fmt.Errorf("parse minio environment: %w", err)
		}
		if err := validate.Struct(cfg.Minio); err != nil {
			return nil, fmt.Errorf("invalid minio configuration: %w", err)
		}
	case "firebase":
		if err := env.Parse(&cfg.Firebase); err != nil {
			return nil, fmt.Errorf("parse firebase environment: %w", err)
		}
		if err := validate.Struct(cfg.Firebase); err != nil {
			return nil, fmt.Errorf("invalid firebase configuration: %w", err)
		}
	}
	return cfg, nil
}

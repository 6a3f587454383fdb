package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadEnv.
const (
	EnvDBPath     = "ARENA_DB"
	EnvConfigPath = "ARENA_CONFIG"
	EnvOutputDir  = "ARENA_OUT"
)

// Env holds defaults for CLI flags taken from the environment.
type Env struct {
	DBPath     string
	ConfigPath string
	OutputDir  string
}

// LoadEnv loads the given .env files, silently skipping missing ones, and
// returns the resulting settings. Variables already set in the process
// environment win over file values.
func LoadEnv(files ...string) (Env, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Env{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return Env{
		DBPath:     os.Getenv(EnvDBPath),
		ConfigPath: os.Getenv(EnvConfigPath),
		OutputDir:  os.Getenv(EnvOutputDir),
	}, nil
}

// Or returns v, or fallback when v is empty.
func Or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

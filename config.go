package models

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Connection setting names. Each is read from the environment, optionally
// seeded from a .env file; the environment wins over the file.
const (
	envHost     = "ORACLE_HOST"
	envPort     = "ORACLE_PORT"
	envService  = "ORACLE_SERVICE"
	envUser     = "ORACLE_USER"
	envPassword = "VCTR_USER_PWD"
)

// ConnConfig holds the database connection settings. It is constructed
// once by LoadConnConfig and passed explicitly into the registry
// constructor; the reconciliation core never reads the environment.
type ConnConfig struct {
	// Host is the database host. Default "localhost".
	Host string

	// Port is the listener port. Default 1521.
	Port int

	// Service is the service name. Default "freepdb1".
	Service string

	// User is the schema user. Default "vctr_user".
	User string

	// Password is mandatory; its absence is a ConfigError raised before
	// any connection attempt.
	Password string
}

// LoadConnConfig reads connection settings from the environment, seeded
// from an optional .env file in the working directory.
func LoadConnConfig() (ConnConfig, error) {
	return loadConnConfig(".env")
}

// loadConnConfig is the testable implementation with an explicit env file
// path. A missing file is not an error; a missing password is.
func loadConnConfig(envFile string) (ConnConfig, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("dotenv")
	if _, err := os.Stat(envFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return ConnConfig{}, fmt.Errorf("%w: reading %s: %v", ErrConfig, envFile, err)
		}
	}
	v.AutomaticEnv()

	v.SetDefault(envHost, "localhost")
	v.SetDefault(envPort, 1521)
	v.SetDefault(envService, "freepdb1")
	v.SetDefault(envUser, "vctr_user")

	cfg := ConnConfig{
		Host:     v.GetString(envHost),
		Port:     v.GetInt(envPort),
		Service:  v.GetString(envService),
		User:     v.GetString(envUser),
		Password: v.GetString(envPassword),
	}

	if cfg.Password == "" {
		return ConnConfig{}, fmt.Errorf("%w: %s is not set (add %s=<password> to %s or the environment)",
			ErrConfig, envPassword, envPassword, envFile)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return ConnConfig{}, fmt.Errorf("%w: invalid %s %q", ErrConfig, envPort, v.GetString(envPort))
	}

	return cfg, nil
}

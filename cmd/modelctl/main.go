// Command modelctl reconciles the ONNX models declared in models.json with
// the local artifact directory and the Oracle DBMS_VECTOR model registry.
//
// Configuration is loaded from environment variables (optionally seeded
// from a .env file in the working directory):
//   - ORACLE_HOST, ORACLE_PORT, ORACLE_SERVICE, ORACLE_USER: connection
//     settings with sensible defaults
//   - VCTR_USER_PWD: database password (required for load/drop)
//   - MODELS_MANIFEST: manifest path (default models/models.json)
//   - MODELS_DIR: artifact directory (default: the manifest's directory)
package main

import (
	"errors"
	"log/slog"
	"os"

	models "github.com/JiseonLee-jul/oracle-vectorsearch-example"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error, invalid arguments,
	// or an unknown model id.
	ExitGeneralError = 1

	// ExitConfigError indicates a malformed manifest or missing
	// connection configuration.
	ExitConfigError = 2

	// ExitConnectionError indicates the database session could not be
	// established.
	ExitConnectionError = 3

	// ExitFetchError indicates one or more artifact downloads failed.
	ExitFetchError = 4

	// ExitRegistryError indicates one or more registry operations failed.
	ExitRegistryError = 5
)

func main() {
	cfg := models.Config{
		ManifestPath: os.Getenv("MODELS_MANIFEST"),
		ModelsDir:    os.Getenv("MODELS_DIR"),
	}

	var opts []models.Option
	if os.Getenv("MODELCTL_DEBUG") != "" {
		opts = append(opts, models.WithLogger(slog.Default()))
	}

	cmd := models.NewCommand(cfg, opts...)
	if err := cmd.Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error classes to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, models.ErrUsage):
		return ExitGeneralError
	case errors.Is(err, models.ErrNotFound):
		return ExitGeneralError
	case errors.Is(err, models.ErrConfig):
		return ExitConfigError
	case errors.Is(err, models.ErrConnection):
		return ExitConnectionError
	case errors.Is(err, models.ErrFetch):
		return ExitFetchError
	case errors.Is(err, models.ErrRegistry):
		return ExitRegistryError
	default:
		return ExitGeneralError
	}
}

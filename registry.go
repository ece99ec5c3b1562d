package models

import (
	"context"
	"database/sql"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"
)

// RegistryClient wraps the database's model registry: listing registered
// names, registering an artifact under a name, and deregistering a name.
// All operations run on a single session whose lifetime spans the whole
// reconciliation run; Close releases it.
type RegistryClient interface {
	// ListRegistered returns the set of currently registered model names.
	ListRegistered(ctx context.Context) (RegistrySnapshot, error)

	// Register loads the named local artifact into the registry under
	// registryName. Fails if a model with that name is already registered;
	// callers deregister first when replacing.
	Register(ctx context.Context, registryName, fileName string) error

	// Deregister removes registryName from the registry. Deregistering a
	// name that is not registered is a caller error; callers check a
	// snapshot first.
	Deregister(ctx context.Context, registryName string) error

	// Close releases the database session. Safe to call once on every
	// exit path.
	Close() error
}

// PL/SQL surface of the registry. The directory object must exist in the
// database and point at the server-side copy of the models directory.
const (
	listRegisteredSQL = `SELECT MODEL_NAME FROM USER_MINING_MODELS`

	loadModelPLSQL = `BEGIN
	DBMS_VECTOR.LOAD_ONNX_MODEL(
		directory  => :directory,
		file_name  => :file_name,
		model_name => :model_name
	);
END;`

	dropModelPLSQL = `BEGIN DBMS_VECTOR.DROP_ONNX_MODEL(:model_name, force => TRUE); END;`
)

// oracleRegistry implements RegistryClient over database/sql with the
// pure-Go go-ora driver.
type oracleRegistry struct {
	// db holds the single session for the run.
	db *sql.DB

	// directory is the Oracle directory object LOAD_ONNX_MODEL reads from.
	directory string

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// Connect opens the database session and verifies it with a ping.
// An empty directoryAlias falls back to DefaultDirectoryAlias.
func Connect(ctx context.Context, cfg ConnConfig, directoryAlias string, logger Logger) (RegistryClient, error) {
	if directoryAlias == "" {
		directoryAlias = DefaultDirectoryAlias
	}

	url := go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Service, cfg.User, cfg.Password, nil)
	db, err := sql.Open("oracle", url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// The registry session is stateful; reconciliation is strictly
	// sequential, so one connection is all a run may use.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s@%s:%d/%s: %v", ErrConnection, cfg.User, cfg.Host, cfg.Port, cfg.Service, err)
	}

	if logger != nil {
		logger.Debug("database session established", "host", cfg.Host, "service", cfg.Service, "user", cfg.User)
	}

	return &oracleRegistry{db: db, directory: directoryAlias, logger: logger}, nil
}

// ListRegistered queries USER_MINING_MODELS for the registered names.
func (r *oracleRegistry) ListRegistered(ctx context.Context) (RegistrySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, listRegisteredSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: listing registered models: %v", ErrRegistry, err)
	}
	defer rows.Close()

	snap := make(RegistrySnapshot)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scanning model name: %v", ErrRegistry, err)
		}
		snap.Add(name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing registered models: %v", ErrRegistry, err)
	}

	return snap, nil
}

// Register executes DBMS_VECTOR.LOAD_ONNX_MODEL for the artifact.
func (r *oracleRegistry) Register(ctx context.Context, registryName, fileName string) error {
	_, err := r.db.ExecContext(ctx, loadModelPLSQL,
		sql.Named("directory", r.directory),
		sql.Named("file_name", fileName),
		sql.Named("model_name", registryName),
	)
	if err != nil {
		return fmt.Errorf("%w: registering %s from %s: %v", ErrRegistry, registryName, fileName, err)
	}

	if r.logger != nil {
		r.logger.Debug("model registered", "name", registryName, "file", fileName)
	}
	return nil
}

// Deregister executes DBMS_VECTOR.DROP_ONNX_MODEL for the name.
// The backend force flag is passed, but callers still check snapshot
// membership first rather than relying on it.
func (r *oracleRegistry) Deregister(ctx context.Context, registryName string) error {
	_, err := r.db.ExecContext(ctx, dropModelPLSQL, sql.Named("model_name", registryName))
	if err != nil {
		return fmt.Errorf("%w: deregistering %s: %v", ErrRegistry, registryName, err)
	}

	if r.logger != nil {
		r.logger.Debug("model deregistered", "name", registryName)
	}
	return nil
}

// Close releases the session.
func (r *oracleRegistry) Close() error {
	return r.db.Close()
}

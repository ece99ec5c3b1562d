// Package models keeps a declarative manifest of ONNX embedding models in
// sync with two stores: a local artifact directory and the model registry of
// an Oracle database (DBMS_VECTOR).
//
// The package serves two primary use cases:
//
//  1. Programmatic API - Load a Manifest, take snapshots of the local
//     directory and the database registry, compute a Plan with PlanFetch,
//     PlanLoad, or PlanDrop, and apply it with an Executor.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach a complete
//     model management subcommand tree to their Cobra root command,
//     providing "fetch", "load", and "drop" commands.
//
// # Reconciliation
//
// Planning is pure: given the manifest (desired state), a local presence
// snapshot, and a registry snapshot (observed state), the planner emits an
// ordered list of actions with no side effects. The Executor applies the
// plan strictly in order, isolating per-item failures so one bad model does
// not block the rest of the batch.
//
// # Sessions
//
// Every invocation opens exactly one database session, spanning the whole
// reconciliation run, and closes it on all exit paths. Execution is strictly
// sequential; this is an operator-invoked maintenance tool, not a serving
// path.
//
// # Configuration
//
// Connection settings come from the environment (optionally seeded from a
// .env file): ORACLE_HOST, ORACLE_PORT, ORACLE_SERVICE, ORACLE_USER, and the
// mandatory VCTR_USER_PWD. The manifest is a models.json document listing
// the desired models with their source URLs and registry names.
package models

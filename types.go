package models

// Config configures the models module.
type Config struct {
	// ManifestPath is the path to the models.json manifest.
	// Example: "models/models.json"
	ManifestPath string

	// ModelsDir is the directory holding local ONNX artifacts.
	// If empty, the directory containing the manifest is used.
	ModelsDir string

	// DirectoryAlias is the Oracle directory object the database reads
	// artifacts from. Defaults to DefaultDirectoryAlias.
	DirectoryAlias string
}

// DefaultDirectoryAlias is the Oracle directory object name used by
// DBMS_VECTOR.LOAD_ONNX_MODEL when none is configured.
const DefaultDirectoryAlias = "ONNX_MODELS"

// ModelSpec describes one desired model from the manifest.
// Specs are constructed at manifest load and never mutated.
type ModelSpec struct {
	// ID is the unique short key used to address the model on the CLI.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// URL is the artifact source. A ".zip" suffix marks an archive whose
	// .onnx entries are extracted; anything else is fetched directly.
	URL string `json:"url"`

	// Output is the local filename the artifact is stored under.
	Output string `json:"output"`

	// DBModelName is the unique key the model is registered under in the
	// database registry.
	DBModelName string `json:"db_model_name"`

	// Description is free-form text shown in status listings.
	Description string `json:"description"`
}

// NameSet is a set of names, used for both snapshot kinds.
type NameSet map[string]struct{}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name into the set.
func (s NameSet) Add(name string) {
	s[name] = struct{}{}
}

// Remove deletes name from the set.
func (s NameSet) Remove(name string) {
	delete(s, name)
}

// Clone returns an independent copy of the set.
func (s NameSet) Clone() NameSet {
	c := make(NameSet, len(s))
	for name := range s {
		c[name] = struct{}{}
	}
	return c
}

// RegistrySnapshot is the set of registry names currently registered in the
// database, captured via ListRegistered at the start of an operation.
type RegistrySnapshot = NameSet

// LocalSnapshot is the set of local artifact filenames present in the
// models directory. Captured fresh per operation; the filesystem may change
// between reconciliation passes.
type LocalSnapshot = NameSet

// Drift partitions a registry snapshot against the manifest.
type Drift struct {
	// Known holds the specs whose registry name is currently registered,
	// in manifest order.
	Known []ModelSpec

	// Orphans holds registered names with no manifest entry, sorted.
	Orphans []string
}

// ActionKind identifies the effect of a planned action.
type ActionKind int

const (
	// ActionFetch downloads an artifact into the local store.
	ActionFetch ActionKind = iota

	// ActionSkip performs nothing; Reason documents why.
	ActionSkip

	// ActionRegister registers a local artifact in the database.
	ActionRegister

	// ActionForceReplace deregisters an existing entry and registers the
	// artifact again under the same name, in that order.
	ActionForceReplace

	// ActionDeregister removes a registry entry.
	ActionDeregister
)

// String returns the lowercase action verb.
func (k ActionKind) String() string {
	switch k {
	case ActionFetch:
		return "fetch"
	case ActionSkip:
		return "skip"
	case ActionRegister:
		return "register"
	case ActionForceReplace:
		return "replace"
	case ActionDeregister:
		return "deregister"
	default:
		return "unknown"
	}
}

// Action is one step of a plan. Plans are pure data; computing one has no
// side effects.
type Action struct {
	// Kind is the effect to apply.
	Kind ActionKind

	// Spec is the manifest entry the action concerns. Nil for orphan
	// deregistrations, which carry only RegistryName.
	Spec *ModelSpec

	// RegistryName is the database registry key the action targets.
	// Always set for register/deregister kinds.
	RegistryName string

	// Reason documents skip actions.
	Reason string
}

// Plan is an ordered action sequence produced by the planner.
type Plan []Action

// Mutating reports whether the plan contains any action with side effects
// against the database or the local store.
func (p Plan) Mutating() bool {
	for _, a := range p {
		if a.Kind != ActionSkip {
			return true
		}
	}
	return false
}

// ItemResult records the outcome of applying one action.
type ItemResult struct {
	// Action is the planned step this result belongs to.
	Action Action

	// Err is nil on success (and for skips), or the per-item failure.
	Err error
}

// Summary accumulates the outcome of applying a plan.
type Summary struct {
	// Succeeded counts actions that completed their effect.
	Succeeded int

	// Skipped counts skip actions.
	Skipped int

	// Failed counts actions that raised a per-item error.
	Failed int

	// Results holds the per-item outcomes in plan order.
	Results []ItemResult
}

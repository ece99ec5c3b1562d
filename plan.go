package models

import (
	"fmt"
	"sort"
	"strings"
)

// Skip reasons emitted by the planner.
const (
	// SkipAlreadyRegistered marks a load target whose registry name is
	// already present and force mode is off.
	SkipAlreadyRegistered = "already registered"

	// SkipArtifactMissing marks a load target whose local artifact is
	// absent. Load never fetches implicitly; fetch is a separate phase.
	SkipArtifactMissing = "artifact missing"

	// SkipArtifactPresent marks a fetch target whose artifact already
	// exists locally.
	SkipArtifactPresent = "already exists"

	// SkipNotRegistered marks a drop target that is not currently
	// registered, so no deregister is issued for it.
	SkipNotRegistered = "not registered"
)

// ResolveTargets maps requested ids to manifest specs, preserving request
// order and dropping duplicate requests. An empty id list selects every
// manifest entry. Any unknown id fails the whole batch with ErrNotFound,
// listing the valid ids.
func ResolveTargets(m *Manifest, ids []string) ([]ModelSpec, error) {
	if len(ids) == 0 {
		return m.Specs(), nil
	}

	seen := make(NameSet, len(ids))
	specs := make([]ModelSpec, 0, len(ids))
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)

		spec, ok := m.FindByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q (valid ids: %s)",
				ErrNotFound, id, strings.Join(m.IDs(), ", "))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// PlanFetch plans artifact downloads for the given targets. Artifacts
// already present locally are skipped.
func PlanFetch(local LocalSnapshot, targets []ModelSpec) Plan {
	plan := make(Plan, 0, len(targets))
	for i := range targets {
		spec := &targets[i]
		if local.Has(spec.Output) {
			plan = append(plan, Action{Kind: ActionSkip, Spec: spec, Reason: SkipArtifactPresent})
			continue
		}
		plan = append(plan, Action{Kind: ActionFetch, Spec: spec})
	}
	return plan
}

// PlanLoad plans registrations for the given targets against the observed
// snapshots. With force off, an already-registered target is skipped; with
// force on it becomes a deregister-then-register replace. A target whose
// local artifact is absent is skipped with advice to fetch first; load
// performs no hidden network calls.
//
// The registry snapshot is cloned and updated in-memory as planning
// proceeds, so later steps observe the state earlier steps will produce.
func PlanLoad(local LocalSnapshot, registered RegistrySnapshot, targets []ModelSpec, force bool) Plan {
	reg := registered.Clone()
	plan := make(Plan, 0, len(targets))

	for i := range targets {
		spec := &targets[i]
		name := spec.DBModelName

		if reg.Has(name) {
			if !force {
				plan = append(plan, Action{Kind: ActionSkip, Spec: spec, RegistryName: name, Reason: SkipAlreadyRegistered})
				continue
			}
			if !local.Has(spec.Output) {
				plan = append(plan, Action{Kind: ActionSkip, Spec: spec, RegistryName: name, Reason: SkipArtifactMissing})
				continue
			}
			plan = append(plan, Action{Kind: ActionForceReplace, Spec: spec, RegistryName: name})
			continue
		}

		if !local.Has(spec.Output) {
			plan = append(plan, Action{Kind: ActionSkip, Spec: spec, RegistryName: name, Reason: SkipArtifactMissing})
			continue
		}

		plan = append(plan, Action{Kind: ActionRegister, Spec: spec, RegistryName: name})
		reg.Add(name)
	}

	return plan
}

// PlanDrop plans deregistrations. With all set, every registered name is
// targeted, including orphans (registered names absent from the manifest);
// orphan actions carry a nil Spec. With explicit ids, unknown ids fail the
// whole batch with ErrNotFound and targets that are not currently
// registered are skipped with a warning reason.
func PlanDrop(m *Manifest, registered RegistrySnapshot, ids []string, all bool) (Plan, error) {
	if all {
		drift := ClassifyDrift(m, registered)
		plan := make(Plan, 0, len(registered))
		for i := range drift.Known {
			spec := &drift.Known[i]
			plan = append(plan, Action{Kind: ActionDeregister, Spec: spec, RegistryName: spec.DBModelName})
		}
		for _, name := range drift.Orphans {
			plan = append(plan, Action{Kind: ActionDeregister, RegistryName: name})
		}
		return plan, nil
	}

	targets, err := ResolveTargets(m, ids)
	if err != nil {
		return nil, err
	}

	plan := make(Plan, 0, len(targets))
	for i := range targets {
		spec := &targets[i]
		name := spec.DBModelName
		if !registered.Has(name) {
			plan = append(plan, Action{Kind: ActionSkip, Spec: spec, RegistryName: name, Reason: SkipNotRegistered})
			continue
		}
		plan = append(plan, Action{Kind: ActionDeregister, Spec: spec, RegistryName: name})
	}
	return plan, nil
}

// ClassifyDrift partitions a registry snapshot into names matching a
// manifest entry (in manifest order) and orphans (sorted).
func ClassifyDrift(m *Manifest, registered RegistrySnapshot) Drift {
	var drift Drift

	for _, spec := range m.Specs() {
		if registered.Has(spec.DBModelName) {
			drift.Known = append(drift.Known, spec)
		}
	}

	for name := range registered {
		if _, ok := m.FindByRegistryName(name); !ok {
			drift.Orphans = append(drift.Orphans, name)
		}
	}
	sort.Strings(drift.Orphans)

	return drift
}

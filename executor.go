package models

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Result markers for per-item output.
var (
	okMark   = color.New(color.FgGreen).Sprint("[OK]")
	loadMark = color.New(color.FgGreen).Sprint("[LOAD]")
	dropMark = color.New(color.FgGreen).Sprint("[DROP]")
	skipMark = color.New(color.FgYellow).Sprint("[SKIP]")
	failMark = color.New(color.FgRed, color.Bold).Sprint("[FAIL]")
)

// LocalStore is the artifact capability the Executor drives.
// *Store satisfies this interface.
type LocalStore interface {
	// Exists reports whether the expected local artifact is present.
	Exists(spec ModelSpec) bool

	// Fetch retrieves the artifact into the local store.
	Fetch(ctx context.Context, spec ModelSpec) error
}

// Executor applies a Plan sequentially against the artifact store and the
// registry, accumulating a Summary. It is the only component aware of
// user-facing presentation for plan execution.
type Executor struct {
	// store handles artifact presence and retrieval. May be nil for
	// drop-only plans.
	store LocalStore

	// registry handles register/deregister calls. May be nil for
	// fetch-only plans.
	registry RegistryClient

	// out receives per-item progress lines.
	out io.Writer

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// NewExecutor creates an Executor. A nil out discards progress output.
func NewExecutor(store LocalStore, registry RegistryClient, out io.Writer, logger Logger) *Executor {
	if out == nil {
		out = io.Discard
	}
	return &Executor{store: store, registry: registry, out: out, logger: logger}
}

// Apply executes the plan strictly in order. Each item is independent: a
// failure is recorded and the batch continues with the next action. Skips
// are counted separately from successes and failures.
func (e *Executor) Apply(ctx context.Context, plan Plan) Summary {
	var sum Summary

	for _, action := range plan {
		e.printHeader(action)

		var err error
		switch action.Kind {
		case ActionSkip:
			sum.Skipped++
			fmt.Fprintf(e.out, "  %s %s\n", skipMark, action.Reason)
			if action.Reason == SkipArtifactMissing && action.Spec != nil {
				fmt.Fprintf(e.out, "         fetch it first: modelctl fetch %s\n", action.Spec.ID)
			}
			sum.Results = append(sum.Results, ItemResult{Action: action})
			continue

		case ActionFetch:
			err = e.applyFetch(ctx, action)

		case ActionRegister:
			err = e.applyRegister(ctx, action)

		case ActionForceReplace:
			err = e.applyForceReplace(ctx, action)

		case ActionDeregister:
			err = e.applyDeregister(ctx, action)

		default:
			err = fmt.Errorf("%w: unknown action kind %d", ErrRegistry, action.Kind)
		}

		if err != nil {
			sum.Failed++
			fmt.Fprintf(e.out, "  %s %v\n", failMark, err)
			if e.logger != nil {
				e.logger.Error("action failed", "action", action.Kind.String(), "target", action.RegistryName, "error", err)
			}
		} else {
			sum.Succeeded++
		}
		sum.Results = append(sum.Results, ItemResult{Action: action, Err: err})
	}

	return sum
}

// printHeader writes the per-item identification line.
func (e *Executor) printHeader(action Action) {
	if action.Spec != nil {
		fmt.Fprintf(e.out, "[%s] %s\n", action.Spec.ID, action.Spec.Name)
		return
	}
	fmt.Fprintf(e.out, "[unknown] %s\n", action.RegistryName)
}

// applyFetch downloads one artifact.
func (e *Executor) applyFetch(ctx context.Context, action Action) error {
	spec := *action.Spec
	fmt.Fprintf(e.out, "  Downloading %s...\n", spec.Name)
	if err := e.store.Fetch(ctx, spec); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "  %s %s\n", okMark, spec.Output)
	return nil
}

// applyRegister registers one artifact. The filesystem is re-checked
// immediately before acting; it may have changed since the snapshot.
func (e *Executor) applyRegister(ctx context.Context, action Action) error {
	spec := *action.Spec
	if !e.store.Exists(spec) {
		return fmt.Errorf("%w: artifact %s disappeared before registration", ErrRegistry, spec.Output)
	}
	if err := e.registry.Register(ctx, action.RegistryName, spec.Output); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "  %s %s\n", loadMark, action.RegistryName)
	return nil
}

// applyForceReplace deregisters then registers the same name. The old entry
// must be fully gone before the new one is registered; a deregister failure
// aborts the register for this item only.
func (e *Executor) applyForceReplace(ctx context.Context, action Action) error {
	if err := e.registry.Deregister(ctx, action.RegistryName); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "  %s %s\n", dropMark, action.RegistryName)
	return e.applyRegister(ctx, action)
}

// applyDeregister removes one registry entry.
func (e *Executor) applyDeregister(ctx context.Context, action Action) error {
	if err := e.registry.Deregister(ctx, action.RegistryName); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "  %s %s\n", dropMark, action.RegistryName)
	return nil
}

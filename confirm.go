package models

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Confirmer approves a destructive plan before it executes. The prompt is
// a side effect kept behind this capability so tests can inject a fixed
// answer.
type Confirmer interface {
	// Confirm asks the operator the given question and returns the answer.
	Confirm(question string) (bool, error)
}

// TerminalConfirmer prompts on the controlling terminal.
type TerminalConfirmer struct{}

// Confirm shows a yes/no prompt, defaulting to no. In a non-interactive
// session it refuses with ErrUsage instead of hanging on a closed stdin.
func (TerminalConfirmer) Confirm(question string) (bool, error) {
	if !stdinIsInteractive() {
		return false, fmt.Errorf("%w: confirmation required but stdin is not a terminal (use --yes)", ErrUsage)
	}

	var approved bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&approved).
		Run()
	if err != nil {
		// Treat an aborted prompt (ctrl-c) as a declined plan.
		return false, nil
	}
	return approved, nil
}

// stdinIsInteractive reports whether stdin is a character device rather
// than a pipe or file.
func stdinIsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// StaticConfirmer answers every question with a fixed result. Used for
// --yes and in tests.
type StaticConfirmer bool

// Confirm returns the fixed answer.
func (c StaticConfirmer) Confirm(string) (bool, error) {
	return bool(c), nil
}

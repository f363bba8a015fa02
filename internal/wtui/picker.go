package wtui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/vde-tools/worktree/internal/snapshot"
)

// ErrPickerCancelled is returned when the user aborts the picker (Ctrl+C or
// Esc), mapped by the command surface to the dedicated cancelled exit code.
var ErrPickerCancelled = errors.New("picker cancelled")

// PickBranch runs an interactive huh.Select over the fleet's branches and
// returns the chosen one, generalized from a multi-field huh form flow
// down to a single branch-selection prompt.
func PickBranch(snap *snapshot.Snapshot, prompt string) (string, error) {
	if len(snap.Worktrees) == 0 {
		return "", fmt.Errorf("no managed working trees to choose from")
	}

	options := make([]huh.Option[string], 0, len(snap.Worktrees))
	for _, w := range snap.Worktrees {
		if w.Branch == "" {
			continue
		}
		label := w.Branch
		if w.Dirty {
			label += " *"
		}
		if w.Lock.Value {
			label += " [locked]"
		}
		options = append(options, huh.NewOption(label, w.Branch))
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no managed working trees to choose from")
	}

	if prompt == "" {
		prompt = "Select a worktree branch"
	}

	var selected string
	field := huh.NewSelect[string]().
		Title(prompt).
		Options(options...).
		Value(&selected)

	form := huh.NewForm(huh.NewGroup(field)).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrPickerCancelled
		}
		return "", err
	}
	if selected == "" {
		return "", ErrPickerCancelled
	}
	return selected, nil
}

package processor

import (
	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
)

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// HuhConfirmer prompts on the terminal.
type HuhConfirmer struct{}

func (HuhConfirmer) Confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, errors.Wrap(err, "prompt failed")
	}
	return ok, nil
}

// AutoConfirmer answers every question the same way, for --yes and scripts.
type AutoConfirmer struct {
	Answer bool
}

func (a AutoConfirmer) Confirm(string) (bool, error) {
	return a.Answer, nil
}

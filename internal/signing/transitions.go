package signing

import (
	"fmt"
	"slices"

	"signapi/internal/model"
)

// Transitions is an immutable table of allowed state changes.
type Transitions[T comparable] struct {
	name  string
	valid map[T][]T
}

func newTransitions[T comparable](name string) *Transitions[T] {
	return &Transitions[T]{name: name, valid: make(map[T][]T)}
}

// Allow registers from -> to for each target.
func (t *Transitions[T]) Allow(from T, to ...T) *Transitions[T] {
	for _, target := range to {
		if !slices.Contains(t.valid[from], target) {
			t.valid[from] = append(t.valid[from], target)
		}
	}
	return t
}

// Can reports whether from -> to is a registered transition.
func (t *Transitions[T]) Can(from, to T) bool {
	return slices.Contains(t.valid[from], to)
}

// Check returns an error describing the rejected transition, or nil.
func (t *Transitions[T]) Check(from, to T) error {
	if !t.Can(from, to) {
		return fmt.Errorf("invalid %s transition: %v → %v", t.name, from, to)
	}
	return nil
}

// FieldState is the per-field signing state.
type FieldState string

const (
	FieldUnsigned FieldState = "UNSIGNED"
	FieldSigned   FieldState = "SIGNED"
	// FieldLocked is a read-only field. It only ever holds a prefilled value.
	FieldLocked FieldState = "LOCKED"
)

// StateOf returns the signing state of f.
func StateOf(f *model.Field) FieldState {
	switch {
	case f.Meta.ReadOnly:
		return FieldLocked
	case f.Inserted:
		return FieldSigned
	}
	return FieldUnsigned
}

var (
	// EnvelopeTransitions: DRAFT on distribution, COMPLETED once every required recipient signed.
	EnvelopeTransitions = newTransitions[model.EnvelopeStatus]("envelope").
				Allow(model.EnvelopeStatusDraft, model.EnvelopeStatusPending).
				Allow(model.EnvelopeStatusPending, model.EnvelopeStatusCompleted)

	// RecipientTransitions is one-way; SIGNED is terminal.
	RecipientTransitions = newTransitions[model.SigningStatus]("recipient").
				Allow(model.SigningStatusNotSigned, model.SigningStatusSigned)

	// FieldTransitions allows re-inserting a signed field to overwrite its value.
	// UNSIGNED -> UNSIGNED only clears a stray signature row. LOCKED has no exits.
	FieldTransitions = newTransitions[FieldState]("field").
				Allow(FieldUnsigned, FieldSigned, FieldUnsigned).
				Allow(FieldSigned, FieldSigned, FieldUnsigned)
)

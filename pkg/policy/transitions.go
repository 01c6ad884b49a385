package policy

import (
	"fmt"
	"strings"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// TransitionMode selects how card status changes are validated.
type TransitionMode string

const (
	// TransitionsPermissive accepts any status change; administrators may
	// override any state.
	TransitionsPermissive TransitionMode = "permissive"
	// TransitionsStrict accepts only the changes listed in strictTransitions.
	TransitionsStrict TransitionMode = "strict"
)

// ParseTransitionMode parses a configured transition mode. Empty means permissive.
func ParseTransitionMode(s string) (TransitionMode, error) {
	switch m := TransitionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TransitionsPermissive, nil
	case TransitionsPermissive, TransitionsStrict:
		return m, nil
	default:
		return "", fmt.Errorf("unknown card transition policy %q (want permissive or strict)", s)
	}
}

// Cancelled is terminal; an expired card may only be renewed to active.
var strictTransitions = map[domain.CardStatus][]domain.CardStatus{
	domain.CardStatusActive:    {domain.CardStatusSuspended, domain.CardStatusExpired, domain.CardStatusCancelled},
	domain.CardStatusSuspended: {domain.CardStatusActive, domain.CardStatusExpired, domain.CardStatusCancelled},
	domain.CardStatusExpired:   {domain.CardStatusActive, domain.CardStatusCancelled},
	domain.CardStatusCancelled: {},
}

// CanTransition reports whether a card may move from one status to another.
// A status may always be set to itself.
func (m TransitionMode) CanTransition(from, to domain.CardStatus) bool {
	if from == to {
		return true
	}
	if m != TransitionsStrict {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

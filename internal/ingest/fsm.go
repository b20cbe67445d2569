// CLAUDE:SUMMARY Document lifecycle transition table — single source of truth for legal status moves.
package ingest

import (
	"fmt"

	"github.com/hazyhaar/docqa/internal/store"
)

// transitions lists the legal status moves. Ready and error documents can
// only go back through queued (reprocess); terminal states never jump
// straight to ready.
var transitions = map[string]map[string]bool{
	store.StatusUploading: {
		store.StatusQueued: true,
		store.StatusError:  true,
	},
	store.StatusQueued: {
		store.StatusProcessing: true,
		store.StatusError:      true,
	},
	store.StatusProcessing: {
		store.StatusReady: true,
		store.StatusError: true,
	},
	store.StatusReady: {
		store.StatusQueued: true,
	},
	store.StatusError: {
		store.StatusQueued: true,
	},
}

// CanTransition reports whether from→to is a legal lifecycle move.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// InvalidTransitionError reports an illegal lifecycle move.
type InvalidTransitionError struct {
	DocumentID string
	From, To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("document %s: illegal transition %s→%s", e.DocumentID, e.From, e.To)
}

package tasks

import (
	"fmt"

	"github.com/desertthunder/brandmix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for logging.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Resolving Phase = iota
	Locating
	Found
	NotFound
	Reconciling
	Done
)

func (p Phase) String() string {
	switch p {
	case Resolving:
		return "resolving"
	case Locating:
		return "locating"
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Reconciling:
		return "reconciling"
	case Done:
		return "done"
	default:
		return ""
	}
}

func resolvingUpdate(step, total int, s models.SongSuggestion) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Resolving,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, s),
	}
}

func locatingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Locating,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking for playlist %q...", name),
	}
}

func foundUpdate(id, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Found,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (ID: %s)", name, id),
		Data:    id,
	}
}

func notFoundUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   NotFound,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("No playlist named %q, creating it", name),
	}
}

func reconcilingUpdate(existing, keep, add int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciling,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Keeping %d of %d tracks, adding %d", keep, existing, add),
	}
}

func doneUpdate(result *models.ReconcileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s: %d added, %d kept, %d not found", result.PlaylistName, result.TracksAdded, result.TracksKept, len(result.TracksNotFound)),
		Data:    result,
	}
}

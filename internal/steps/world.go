// Package steps implements the Given/When/Then vocabulary of the receipt
// helpdesk scenarios on top of the datastore, blob and helpdesk gateways.
//
// A World holds everything one scenario seeds or observes. Given steps record
// the ids they create so Cleanup can remove them afterwards, whatever the
// outcome of the scenario.
package steps

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// DefaultTimeout bounds one scenario, cleanup included.
const DefaultTimeout = 360 * time.Second

// Phase is the lifecycle position of a World.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSeeded
	PhaseInvoked
	PhaseAsserted
	PhaseCleanedUp
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSeeded:
		return "seeded"
	case PhaseInvoked:
		return "invoked"
	case PhaseAsserted:
		return "asserted"
	case PhaseCleanedUp:
		return "cleaned-up"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Deps are the collaborators a World drives.
type Deps struct {
	Datastore *datastore.Gateway
	Blobs     *datastore.Blobs
	Helpdesk  *helpdesk.Client
	Logger    *slog.Logger

	// WorkDir receives the local PDF files uploaded by GivenReceiptPdf. Empty
	// means the current directory.
	WorkDir string
}

// World is the per-scenario state. It is not safe for concurrent use; each
// scenario gets its own.
type World struct {
	deps  Deps
	phase Phase

	EventID            string
	MessageID          string
	ReceiptID          string
	ReceiptErrorID     string
	ReceiptPdfFileName string
	CartID             string
	CartErrorID        string

	// Response is the last API response and Body its decoded JSON object, nil
	// when the body is not a JSON object.
	Response *helpdesk.Response
	Body     map[string]any

	localFiles []string
}

// NewWorld returns an idle World.
func NewWorld(deps Deps) *World {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &World{deps: deps}
}

// Phase returns the current lifecycle phase.
func (w *World) Phase() Phase {
	return w.phase
}

// PhaseError reports a step run out of order.
type PhaseError struct {
	Step  string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("step %q not allowed in phase %s", e.Step, e.Phase)
}

func (w *World) enter(step string, next Phase, allowed ...Phase) error {
	for _, p := range allowed {
		if w.phase == p {
			w.phase = next
			return nil
		}
	}
	return &PhaseError{Step: step, Phase: w.phase}
}

func (w *World) reset() {
	deps := w.deps
	*w = World{deps: deps, phase: PhaseCleanedUp}
}

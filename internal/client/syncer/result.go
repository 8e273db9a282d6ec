package syncer

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeFull  Mode = "full"
	ModeDelta Mode = "delta"
)

type Phase string

const (
	PhaseGate           Phase = "gate"
	PhaseUploadSales    Phase = "upload_sales"
	PhaseUploadProducts Phase = "upload_products"
	PhaseFetch          Phase = "fetch"
	PhaseApply          Phase = "apply"
	PhaseReconcile      Phase = "reconcile"
	PhaseCursor         Phase = "cursor"
)

// ItemFailure is one record that could not be processed.
type ItemFailure struct {
	Phase Phase
	Key   string
	Err   error
}

func (f ItemFailure) String() string {
	return fmt.Sprintf("%s %s: %v", f.Phase, f.Key, f.Err)
}

// Result is the outcome of one run. Success is false when the run was
// rejected at the gate or cancelled. Item failures only show up in Failed and
// Errors; Degraded tells that the remote store went away after the gate, so
// some phases were cut short and the cursor was kept.
type Result struct {
	UploadedSales    int
	ProductsUploaded int
	Downloaded       int
	DeletedLocal     int
	Delisted         int
	Failed           int
	Mode             Mode
	CursorAdvanced   bool
	Degraded         bool
	Success          bool
	Message          string
	Errors           []ItemFailure
	Err              error
}

func (r *Result) fail(phase Phase, key string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemFailure{Phase: phase, Key: key, Err: err})
}

func (r *Result) summary() string {
	if r.Err != nil {
		return fmt.Sprintf("sync failed: %v", r.Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s sync: %d sales uploaded, %d products uploaded, %d downloaded, %d deleted",
		r.Mode, r.UploadedSales, r.ProductsUploaded, r.Downloaded, r.DeletedLocal)
	if r.Delisted > 0 {
		fmt.Fprintf(&b, ", %d delisted", r.Delisted)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, "; %d items failed", r.Failed)
	}
	if r.Degraded {
		b.WriteString("; remote store lost during the run, cursor kept")
	}
	return b.String()
}

// EventKind tells what an Event reports.
type EventKind int

const (
	PhaseStarted EventKind = iota
	PhaseFinished
	Finished
)

// Event is emitted on Engine.Events while a run progresses. Done and Failed
// count the items of a finished phase; Result is set on Finished.
type Event struct {
	Kind   EventKind
	Phase  Phase
	Done   int
	Failed int
	Result *Result
}

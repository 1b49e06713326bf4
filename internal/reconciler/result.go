// Package reconciler implements the core logic that brings managed DNS
// address records in line with the day/night schedule.
package reconciler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Pass identifies which reconciliation pass produced a result.
type Pass string

const (
	// PassDeclared reconciles the domains listed in configuration.
	PassDeclared Pass = "declared"
	// PassDiscovery reconciles undeclared records found by scanning zones.
	PassDiscovery Pass = "discovery"
)

// ActionType represents the type of reconciliation action.
type ActionType string

const (
	// ActionUpdate indicates a record will be/was rewritten to the desired address.
	ActionUpdate ActionType = "update"
	// ActionSkip indicates a record was left untouched.
	ActionSkip ActionType = "skip"
)

// ActionStatus represents the outcome of an action.
type ActionStatus string

const (
	// StatusSuccess indicates the action completed successfully.
	StatusSuccess ActionStatus = "success"
	// StatusFailed indicates the action failed.
	StatusFailed ActionStatus = "failed"
	// StatusSkipped indicates no change was needed or allowed.
	StatusSkipped ActionStatus = "skipped"
)

// Reasons a record is skipped.
const (
	ReasonUnmanaged  = "unmanaged"   // address is not day_ip or night_ip
	ReasonInSync     = "in_sync"     // already at the desired address
	ReasonDeclared   = "declared"    // handled by the declared pass
	ReasonNotAddress = "not_address" // not an A record
)

// Action represents a single decision about one DNS record.
type Action struct {
	Type     ActionType
	Status   ActionStatus
	Pass     Pass
	Zone     string
	Hostname string
	RecordID string

	// From is the address the record had when it was read.
	From string

	// Target is the desired address.
	Target string

	// Reason explains a skip.
	Reason string

	// Error contains the error message if Status is StatusFailed.
	Error string

	// DryRun indicates this action was not actually executed.
	DryRun bool
}

// String returns a human-readable representation of the action.
func (a Action) String() string {
	status := string(a.Status)
	if a.DryRun && a.Status == StatusSuccess {
		status = "dry-run"
	}

	switch {
	case a.Error != "":
		return fmt.Sprintf("[%s] %s %s %s -> %s (%s): %s",
			status, a.Type, a.Hostname, a.From, a.Target, a.Pass, a.Error)
	case a.Type == ActionSkip:
		return fmt.Sprintf("[%s] %s %s %s (%s): %s",
			status, a.Type, a.Hostname, a.From, a.Pass, a.Reason)
	default:
		return fmt.Sprintf("[%s] %s %s %s -> %s (%s)",
			status, a.Type, a.Hostname, a.From, a.Target, a.Pass)
	}
}

// UnitResult is the outcome for one unit of work: a declared domain in the
// declared pass, or a zone in the discovery pass.
type UnitResult struct {
	Name    string
	Zone    string
	Updated int
	Skipped int
	Errors  []error
}

// Failed reports whether any operation of the unit failed.
func (u UnitResult) Failed() bool {
	return len(u.Errors) > 0
}

// Err joins the unit's errors, or returns nil.
func (u UnitResult) Err() error {
	return errors.Join(u.Errors...)
}

// PassResult holds the outcome of one reconciliation pass.
type PassResult struct {
	Pass Pass

	// Skipped is set when the pass did not run (discovery disabled).
	Skipped bool

	Units   []UnitResult
	Actions []Action
}

// NewPassResult creates an empty result for the given pass.
func NewPassResult(pass Pass) *PassResult {
	return &PassResult{
		Pass:    pass,
		Units:   make([]UnitResult, 0),
		Actions: make([]Action, 0),
	}
}

// merge appends another partial result of the same pass.
func (p *PassResult) merge(other *PassResult) {
	if other == nil {
		return
	}
	p.Units = append(p.Units, other.Units...)
	p.Actions = append(p.Actions, other.Actions...)
}

// Updated returns all successful update actions.
func (p *PassResult) Updated() []Action {
	if p == nil {
		return nil
	}
	var updated []Action
	for _, a := range p.Actions {
		if a.Type == ActionUpdate && a.Status == StatusSuccess {
			updated = append(updated, a)
		}
	}
	return updated
}

// UpdatedCount returns the number of records updated (or that would be in dry-run).
func (p *PassResult) UpdatedCount() int {
	return len(p.Updated())
}

// SkippedActions returns records left untouched.
func (p *PassResult) SkippedActions() []Action {
	if p == nil {
		return nil
	}
	var skipped []Action
	for _, a := range p.Actions {
		if a.Type == ActionSkip {
			skipped = append(skipped, a)
		}
	}
	return skipped
}

// Failures returns the units with at least one error.
func (p *PassResult) Failures() []UnitResult {
	if p == nil {
		return nil
	}
	var failed []UnitResult
	for _, u := range p.Units {
		if u.Failed() {
			failed = append(failed, u)
		}
	}
	return failed
}

// FailedCount returns the number of failed units.
func (p *PassResult) FailedCount() int {
	return len(p.Failures())
}

// Result holds the complete result of a reconciliation run.
type Result struct {
	StartTime time.Time
	EndTime   time.Time

	// Desired is the address managed records were reconciled to.
	Desired string

	// DryRun indicates if this was a dry-run (no changes applied).
	DryRun bool

	Declared  *PassResult
	Discovery *PassResult
}

// NewResult creates a new Result started at the given time.
func NewResult(desired string, dryRun bool, start time.Time) *Result {
	return &Result{
		StartTime: start,
		Desired:   desired,
		DryRun:    dryRun,
		Declared:  NewPassResult(PassDeclared),
		Discovery: NewPassResult(PassDiscovery),
	}
}

// Complete marks the result as complete.
func (r *Result) Complete(end time.Time) {
	r.EndTime = end
}

// Duration returns the total reconciliation duration.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Passes returns the pass results in execution order.
func (r *Result) Passes() []*PassResult {
	return []*PassResult{r.Declared, r.Discovery}
}

// UpdatedCount returns the number of records updated across both passes.
func (r *Result) UpdatedCount() int {
	return r.Declared.UpdatedCount() + r.Discovery.UpdatedCount()
}

// SkippedCount returns the number of records left untouched across both passes.
func (r *Result) SkippedCount() int {
	return len(r.Declared.SkippedActions()) + len(r.Discovery.SkippedActions())
}

// Failures returns all failed units across both passes.
func (r *Result) Failures() []UnitResult {
	return append(r.Declared.Failures(), r.Discovery.Failures()...)
}

// FailedCount returns the number of failed units across both passes.
func (r *Result) FailedCount() int {
	return len(r.Failures())
}

// HasErrors returns true if any unit failed.
func (r *Result) HasErrors() bool {
	return r.FailedCount() > 0
}

// DiscoverySkipped reports whether the discovery pass was disabled.
func (r *Result) DiscoverySkipped() bool {
	return r.Discovery != nil && r.Discovery.Skipped
}

// Summary returns a human-readable summary of the reconciliation.
func (r *Result) Summary() string {
	var sb strings.Builder

	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(&sb, "Reconciliation complete (%s) in %s\n", mode, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Desired address: %s\n", r.Desired)
	fmt.Fprintf(&sb, "  Declared updated: %d\n", r.Declared.UpdatedCount())
	if r.DiscoverySkipped() {
		fmt.Fprintf(&sb, "  Discovery: disabled\n")
	} else {
		fmt.Fprintf(&sb, "  Discovered updated: %d\n", r.Discovery.UpdatedCount())
	}
	fmt.Fprintf(&sb, "  Skipped: %d\n", r.SkippedCount())

	if r.HasErrors() {
		fmt.Fprintf(&sb, "  Failed: %d\n", r.FailedCount())
		for _, u := range r.Failures() {
			fmt.Fprintf(&sb, "    - %s (%s): %v\n", u.Name, u.Zone, u.Err())
		}
	}

	return sb.String()
}

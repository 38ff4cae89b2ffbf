package boot

import (
	"errors"
	"fmt"
)

// Step is the outcome of one sub-step of enable or disable.
type Step struct {
	Name string
	Err  error
}

// Failed reports whether the step failed.
func (s Step) Failed() bool {
	return s.Err != nil
}

// Report collects every sub-step of an operation. All steps are always
// attempted, and the exit code is the number that failed.
type Report struct {
	Action string
	Steps  []Step
}

func (r *Report) add(name string, err error) {
	r.Steps = append(r.Steps, Step{Name: name, Err: err})
}

// ExitCode is the number of failed steps. Zero means success.
func (r Report) ExitCode() int {
	n := 0
	for _, s := range r.Steps {
		if s.Failed() {
			n++
		}
	}
	return n
}

// Err joins the errors of the failed steps, each prefixed by its step
// name, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}
	return errors.Join(errs...)
}

// State is the derived boot registration state.
type State string

const (
	StateEnabled      State = "enabled"
	StateDisabled     State = "disabled"
	StateInconsistent State = "inconsistent"
)

// StatusReport describes the boot registration without changing it.
type StatusReport struct {
	Backend Kind

	// RulePresent and RuleLines describe the udev rule file.
	RulePresent bool
	RuleLines   int

	// BackendInstalled reports whether the unit or init script exists.
	BackendInstalled bool
	BackendEnabled   bool

	// BackendErr is set when the backend could not be queried or is absent.
	BackendErr error

	State State
}

// ExitCode is 0 for a consistent, queryable registration and 1 otherwise.
func (s StatusReport) ExitCode() int {
	if s.BackendErr != nil || s.State == StateInconsistent {
		return 1
	}
	return 0
}

func deriveState(rulePresent, backendEnabled bool) State {
	switch {
	case rulePresent && backendEnabled:
		return StateEnabled
	case !rulePresent && !backendEnabled:
		return StateDisabled
	default:
		return StateInconsistent
	}
}

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitExhausted means the provider answered without a body
	// container. No further requests should be issued this run.
	ErrRateLimitExhausted = errors.New("upstream request quota exhausted")
	// ErrRequestBudgetExhausted is the client-side counterpart of
	// ErrRateLimitExhausted, raised before a request is sent.
	ErrRequestBudgetExhausted = errors.New("request budget for this run exhausted")
	ErrSchemaMismatch         = errors.New("schema mismatch")
	ErrUnknownDialect         = fmt.Errorf("%w: no known dialect matches record fields", ErrSchemaMismatch)
	ErrUnmappedField          = fmt.Errorf("%w: field not mapped by dialect", ErrSchemaMismatch)
	ErrRepairIncomplete       = errors.New("repair incomplete")
)

// IsHalt reports whether err must stop the whole run.
func IsHalt(err error) bool {
	return errors.Is(err, ErrRateLimitExhausted) || errors.Is(err, ErrRequestBudgetExhausted)
}

type RateLimitError struct {
	Unit   Unit
	Reason string
}

func (e *RateLimitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Unit, ErrRateLimitExhausted, e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Unit, ErrRateLimitExhausted)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExhausted
}

type TransportError struct {
	Unit       Unit
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transport error (HTTP %d): %v", e.Unit, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Unit, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError points at the offending field. Seq is the 1-based
// position of the record within its page, 0 when not record specific.
type SchemaMismatchError struct {
	Dialect string
	Field   string
	Value   string
	Seq     int
	Err     error
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("%v: record %d field %q", ErrSchemaMismatch, e.Seq, e.Field)
	if e.Dialect != "" {
		msg += fmt.Sprintf(" (dialect %s)", e.Dialect)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// RepairIncompleteError is raised when a repair failed after the delete of the
// prior rows was issued. Retained tells whether the rollback is known to have
// restored them; when false the unit may be empty until the next repair pass.
type RepairIncompleteError struct {
	Unit     Unit
	Retained bool
	Err      error
}

func (e *RepairIncompleteError) Error() string {
	state := "unit may be empty"
	if e.Retained {
		state = "prior rows retained"
	}
	return fmt.Sprintf("%s: %v (%s): %v", e.Unit, ErrRepairIncomplete, state, e.Err)
}

func (e *RepairIncompleteError) Is(target error) bool {
	return target == ErrRepairIncomplete
}

func (e *RepairIncompleteError) Unwrap() error {
	return e.Err
}

// UnitError records why a unit was skipped during a run.
type UnitError struct {
	Unit  Unit
	Stage string
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Unit, e.Stage, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

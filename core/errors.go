package core

import "fmt"

// ValidationError reports a malformed pulse record or bounds configuration
// rejected before execution begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Reason)
}

// BoundViolation reports which resource bound a pulse exceeded during
// execution, and the usage observed at the moment of violation.
type BoundViolation struct {
	Bound    string
	Limit    uint64
	Observed uint64
}

func (e *BoundViolation) Error() string {
	return fmt.Sprintf("bound violation: %s limit %d exceeded by observed %d", e.Bound, e.Limit, e.Observed)
}

// CodeFault wraps a panic recovered from registered code (see
// Engine.runGuarded), as opposed to a bound violation or a registry lookup
// failure. Errors that code returns normally (a wasm trap, a script
// evaluation error) are not wrapped in CodeFault; the engine records them
// on the pulse with kind "CodeFault".
type CodeFault struct {
	FunctionCID CID
	Err         error
}

func (e *CodeFault) Error() string {
	return fmt.Sprintf("code fault in %s: %v", e.FunctionCID, e.Err)
}

func (e *CodeFault) Unwrap() error { return e.Err }

// MissingCode reports that a pulse named a functionCid with no matching
// registry entry.
type MissingCode struct {
	FunctionCID CID
}

func (e *MissingCode) Error() string {
	return fmt.Sprintf("missing code: no registry entry for %s", e.FunctionCID)
}

// StoreAbsence reports that a CID was requested from the content store but
// is not present in either the memory layer or the backing store.
type StoreAbsence struct {
	CID CID
}

func (e *StoreAbsence) Error() string {
	return fmt.Sprintf("store absence: %s not found", e.CID)
}

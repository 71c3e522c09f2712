package embeddb

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotFound is returned by Get/GetVar when no record with the
	// requested key exists, or exists but has already been reclaimed.
	ErrNotFound = errors.New("embeddb: record not found")
	// ErrOverwritten is returned by a variable-data stream read when the
	// record's fixed part is intact but its variable payload has already
	// been reclaimed by ring wrap.
	ErrOverwritten = errors.New("embeddb: variable data overwritten")
	// ErrNonMonotonicKey is returned by Put when key does not strictly
	// exceed every previously inserted key.
	ErrNonMonotonicKey = errors.New("embeddb: key must be strictly greater than all previous keys")
	// ErrClosed is returned by any operation performed on a closed DB.
	ErrClosed = errors.New("embeddb: database is closed")
	// ErrVarDataDisabled is returned by PutVar/GetVar when the database
	// was not configured with UseVariableData.
	ErrVarDataDisabled = errors.New("embeddb: variable data is not enabled")
	// ErrNoVarData names the case of a record with no associated
	// variable-length payload (its offset is the sentinel). GetVar and
	// Iterator.ValueVar report that case with a nil stream and a nil
	// error, not with this value.
	ErrNoVarData = errors.New("embeddb: record has no variable data")

	// errSplineEraseTooMany is an internal invariant violation: Erase was
	// asked to drop more points than it safely can.
	errSplineEraseTooMany = errors.New("embeddb: spline erase would underflow point count")
)

package pgstore

import "errors"

var (
	// ErrCorruptRow is returned when a stored plan or status is not a known value.
	ErrCorruptRow = errors.New("billing row holds unknown enum value")
	// ErrConstraintViolation is returned when a write breaks a table CHECK,
	// e.g. a period that ends before it starts.
	ErrConstraintViolation = errors.New("subscription violates table constraint")
)

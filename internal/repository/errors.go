package repository

import "errors"

var (
	// ErrCapacityReached is returned when a tutor already holds as many active
	// tutorings as their limit allows at write time.
	ErrCapacityReached = errors.New("tutor active tutoring limit reached")
	// ErrStatusChanged is returned by guarded updates when the row left the
	// expected status before the write.
	ErrStatusChanged = errors.New("status changed before update")
)

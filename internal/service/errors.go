package service

import "errors"

var (
	// ErrValidation marks input the caller must fix; handlers answer 400
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing row; handlers answer 404
	ErrNotFound = errors.New("not found")
	// ErrNotReconstructible marks a stored plan whose waypoints do not fit its shape type
	ErrNotReconstructible = errors.New("shape cannot be reconstructed")
)

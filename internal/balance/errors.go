package balance

import "github.com/pkg/errors"

var (
	// ErrConfig indicates an invalid controller configuration.
	ErrConfig = errors.New("balance: invalid configuration")

	// ErrFeet indicates a foot position list that does not match the legs.
	ErrFeet = errors.New("balance: foot positions do not match legs")

	// ErrRotation indicates a missing or malformed rotation matrix.
	ErrRotation = errors.New("balance: invalid rotation matrix")

	// ErrSize indicates a buffer that breaks the 12-variable, 20-row layout.
	ErrSize = errors.New("balance: buffer size mismatch")
)

package heat

import "errors"

var (
	// ErrInvalidConfiguration marks parameters rejected before a session starts.
	ErrInvalidConfiguration = errors.New("heat: invalid configuration")

	// ErrFrameSize indicates a frame whose dimensions differ from the field.
	ErrFrameSize = errors.New("heat: frame size does not match field")
)

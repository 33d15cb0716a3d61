package particles

import "errors"

// ErrEmptyTarget is returned by SetTarget when no anchor points are given.
// The engine state is left untouched.
var ErrEmptyTarget = errors.New("particles: empty target set")

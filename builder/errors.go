package builder

import "errors"

// ErrInvalidArgument is returned for a malformed corpus shape passed
// to Build.
var ErrInvalidArgument = errors.New("builder: invalid argument")

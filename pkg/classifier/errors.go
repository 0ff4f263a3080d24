package classifier

import "errors"

// ErrInvalidInput is returned for empty or non-textual input. Nothing is scored.
var ErrInvalidInput = errors.New("classifier: invalid text input")

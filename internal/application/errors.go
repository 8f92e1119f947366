package application

import "errors"

// ErrConfirmationRequired is returned by destructive operations called
// without an explicit confirmation. Nothing is changed.
var ErrConfirmationRequired = errors.New("confirmation required")

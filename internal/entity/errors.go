package entity

import "errors"

// ErrNotAuthorized is returned to callers without an active session. The
// message is part of the client contract.
var ErrNotAuthorized = errors.New("Not authorized")

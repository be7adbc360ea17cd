package ports

import "errors"

// ErrNotFound reports a lookup for a record that does not exist. Store
// implementations wrap it so callers can branch with errors.Is without
// depending on a concrete adapter.
var ErrNotFound = errors.New("ports: not found")

package storage

import "errors"

// ErrKeyNotFound reports a lookup for a key that does not exist.
var ErrKeyNotFound = errors.New("key not found")

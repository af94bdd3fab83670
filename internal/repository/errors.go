// Package repository holds errors shared by every storage backend.
package repository

import "errors"

// ErrNotFound indicates the requested row does not exist. Callers compare
// with errors.Is; usecases translate it into their own sentinel errors.
var ErrNotFound = errors.New("repository: not found")

package postgres

import "errors"

// ErrVersionConflict is returned by SaveSnapshot when the stored version
// does not match the expected predecessor. The caller lost an optimistic
// lock race; the in-memory state is not rolled back.
var ErrVersionConflict = errors.New("postgres: snapshot version conflict")

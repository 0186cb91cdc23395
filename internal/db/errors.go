package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrIndexNotFound = errors.New("db: index not found")
)

// Op constants map to Redis command names for error context.
const (
	OpGet         = "GET"
	OpSet         = "SET"
	OpIncrBy      = "INCRBY"
	OpDecrBy      = "DECRBY"
	OpExpire      = "EXPIRE"
	OpDel         = "DEL"
	OpScan        = "SCAN"
	OpHSet        = "HSET"
	OpSearch      = "FT.SEARCH"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

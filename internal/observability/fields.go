package observability

import "go.uber.org/zap"

// Field constructor aliases so call sites outside the logging layer don't
// import zap directly.
//
//nolint:gochecknoglobals // Thin aliases over zap constructors
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
)

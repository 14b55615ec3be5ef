package pipeline

import (
	"github.com/Veraticus/the-basket-must-flow/internal/common"
)

// Process exit statuses for a run.
const (
	ExitSuccess  = 0
	ExitInvalid  = 1
	ExitMining   = 2
	ExitIO       = 3
	ExitCanceled = 130
)

// Markers printed as the last stdout line so a scheduler can branch on them.
const (
	SuccessMarker = "PIPELINE_SUCCESS"
	ErrorMarker   = "PIPELINE_ERROR"
)

// ExitCode maps a Run error to a process exit status.
func ExitCode(err error) int {
	switch common.KindOf(err) {
	case common.KindNone:
		return ExitSuccess
	case common.KindInput, common.KindThreshold:
		return ExitInvalid
	case common.KindMining:
		return ExitMining
	case common.KindCanceled:
		return ExitCanceled
	default:
		return ExitIO
	}
}

// Marker returns the stdout marker for a Run error.
func Marker(err error) string {
	if err == nil {
		return SuccessMarker
	}
	return ErrorMarker
}

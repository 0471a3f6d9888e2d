package main

import (
	"context"
	"errors"

	"vidbunch/internal/vberr"
)

const (
	exitFailure     = 1
	exitInterrupted = 130
)

// kindExitCodes maps vberr classes to process exit statuses.
var kindExitCodes = map[string]int{
	"configuration":  2,
	"media_read":     3,
	"shape_mismatch": 4,
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	if code, ok := kindExitCodes[vberr.Kind(err)]; ok {
		return code
	}
	return exitFailure
}

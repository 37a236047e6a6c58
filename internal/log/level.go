// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

// Level is the level of the logger.
type Level uint8

const (
	// Critical is the cirtical (crit) level.
	Critical Level = iota
	// Error is the error (eror) level.
	Error
	// Warn is the warn level.
	Warn
	// Info is the info level.
	Info
	// Debug is the debug (dbug) level.
	Debug
	// Trace is the trace (trce) level.
	Trace
)

func (level Level) String() (s string) {
	switch level {
	case Critical:
		return "CRIT"
	case Error:
		return "EROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DBUG"
	case Trace:
		return "TRCE"
	default:
		return "???"
	}
}

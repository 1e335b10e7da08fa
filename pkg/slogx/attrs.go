// Package slogx carries small slog attribute helpers shared across packages.
package slogx

import "log/slog"

// Error returns a slog.Attr for the provided error under the "error" key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// CallID returns a slog.Attr for a call identifier under the "call_id" key,
// the field every per-call log line carries.
func CallID(id string) slog.Attr {
	return slog.String("call_id", id)
}

package main

import (
	"context"
	"errors"
)

// Command-level errors
var (
	// ErrAdapterUnavailable indicates no Bluetooth adapter was found in
	// time. This is a normal mode for hardware without a radio, so the
	// message suggests checking the obvious causes rather than a stack
	// trace.
	ErrAdapterUnavailable = errors.New("no Bluetooth adapter available")

	// ErrDeviceNotFound indicates the requested address never showed up
	// in a registry snapshot before the timeout.
	ErrDeviceNotFound = errors.New("device not found")
)

// FormatUserError renders an error for end users, mapping context
// timeouts to plain language.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for the operation to complete"
	case errors.Is(err, ErrAdapterUnavailable):
		return "no Bluetooth adapter available (is the radio present and bluetoothd running?)"
	default:
		return err.Error()
	}
}

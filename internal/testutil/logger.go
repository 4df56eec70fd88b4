package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that drops all output. Prefer
// log.NewNop() inside packages that already import internal/log.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Package notify surfaces user-facing status via desktop notifications.
// Delivery is best effort: a notification that cannot be shown must
// never break the capture pipeline, so failures are only logged.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appTitle = "govoicekey"

// Warn shows a warning notification for a recoverable error.
func Warn(message string) {
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		slog.Debug("notification delivery failed", "message", message, "error", err)
	}
}

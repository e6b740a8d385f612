// Package notify provides desktop notification support for long
// deployments that finish while the terminal is in the background.
package notify

import (
	"fmt"
	"time"

	"github.com/raspdbg/raspdbg/internal/config"
	"github.com/raspdbg/raspdbg/internal/utils"
)

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// NotifyDeployed sends a notification about a completed deployment.
	NotifyDeployed(program, connection string, elapsed time.Duration) error
	// NotifyFailure sends a notification about a failed deployment.
	NotifyFailure(program string, err error) error
}

// Option configures a Notifier.
type Option func(*notifier)

// WithBackend sets a custom notification backend (for testing).
func WithBackend(backend Backend) Option {
	return func(n *notifier) {
		n.backend = backend
	}
}

// notifier sends desktop notifications using the system notification service.
type notifier struct {
	onSuccess bool
	onFailure bool
	backend   Backend
}

// NotifyDeployed sends a notification about a completed deployment.
func (n *notifier) NotifyDeployed(program, connection string, elapsed time.Duration) error {
	if !n.onSuccess {
		return nil
	}

	title := "Raspdbg: Deploy Complete"
	message := fmt.Sprintf("'%s' deployed to '%s'.\nElapsed: %s", program, connection, utils.FormatDuration(elapsed))

	return n.backend.Notify(title, message, "")
}

// NotifyFailure sends a notification about a failed deployment.
func (n *notifier) NotifyFailure(program string, err error) error {
	if !n.onFailure {
		return nil
	}

	title := "Raspdbg: Deploy Failed"
	message := fmt.Sprintf("Failed to deploy '%s'.\nError: %v", program, err)

	return n.backend.Alert(title, message, "")
}

// New creates a new Notifier based on the configuration.
func New(cfg config.NotificationConfig, opts ...Option) Notifier {
	n := &notifier{
		onSuccess: cfg.Enabled && cfg.OnSuccess,
		onFailure: cfg.Enabled && cfg.OnFailure,
		backend:   newDesktopBackend(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Package remote owns the authenticated channel to a target device and
// the idempotent provisioning verbs executed over it.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raspdbg/raspdbg/internal/catalog"
	"github.com/raspdbg/raspdbg/internal/connections"
)

// State is the session lifecycle state.
type State int

const (
	// StateDisconnected is the initial state.
	StateDisconnected State = iota
	// StateConnecting is the dial in progress.
	StateConnecting
	// StateConnected is an authenticated channel with no verb running.
	StateConnected
	// StateProvisioning is a verb in flight.
	StateProvisioning
	// StateReady means provisioning completed for this attempt.
	StateReady
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateProvisioning:
		return "provisioning"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed indicates the session channel is gone.
var ErrClosed = errors.New("session is closed")

// Conn is an established channel to the target: sequential command
// execution plus file transfer. Implementations are not safe for
// concurrent use; the session serializes access.
type Conn interface {
	// Run executes one shell command and returns its combined output.
	Run(ctx context.Context, cmd string) (string, error)
	// Upload mirrors a local directory tree to a remote directory.
	Upload(ctx context.Context, localDir, remoteDir string) error
	// Close tears the channel down; in-flight commands fail.
	Close() error
}

// Dialer opens the authenticated channel for a profile.
type Dialer interface {
	Dial(ctx context.Context, profile *connections.Profile) (Conn, error)
}

// Options configures a session.
type Options struct {
	// Root overrides the remote deploy root (default /home).
	Root string
	// AdapterScriptURL is the debug adapter installer script.
	AdapterScriptURL string
	// CommandTimeout bounds a single remote command.
	CommandTimeout time.Duration
}

// Session owns one channel for the lifetime of a single debug launch.
// Remote commands execute sequentially; there is no command
// multiplexing within a session.
type Session struct {
	profile *connections.Profile
	conn    Conn
	opts    Options
	layout  Layout
	state   State
}

// Connect dials the profile and returns a session in the Connected
// state. Authentication failure, an unreachable host or a timeout fail
// the whole attempt; the session never leaves Connecting on error.
func Connect(ctx context.Context, profile *connections.Profile, opts Options, d Dialer) (*Session, error) {
	s := &Session{
		profile: profile,
		opts:    opts,
		layout:  NewLayout(opts.Root, profile.User),
		state:   StateConnecting,
	}

	conn, err := d.Dial(ctx, profile)
	if err != nil {
		s.state = StateClosed
		return nil, fmt.Errorf("connecting to %s: %w", profile.Address(), err)
	}

	s.conn = conn
	s.state = StateConnected
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Layout returns the remote path layout for this session's user.
func (s *Session) Layout() Layout {
	return s.layout
}

// Close disposes the channel. In-flight remote commands fail with a
// connection-closed error, surfaced as a normal failure outcome.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Session) run(ctx context.Context, cmd string) (string, error) {
	if s.state == StateClosed {
		return "", ErrClosed
	}
	if s.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CommandTimeout)
		defer cancel()
	}
	return s.conn.Run(ctx, cmd)
}

// beginVerb transitions into Provisioning. Verbs are callable from
// Connected and Ready, so a caller can retry a failed verb on the same
// session.
func (s *Session) beginVerb() error {
	switch s.state {
	case StateConnected, StateReady, StateProvisioning:
		s.state = StateProvisioning
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return fmt.Errorf("session is %s, not connected", s.state)
	}
}

func (s *Session) endVerb(err error) {
	if s.state != StateProvisioning {
		return
	}
	if err != nil {
		s.state = StateConnected
		return
	}
	s.state = StateReady
}

// DetectModel reports the target's hardware model string.
func (s *Session) DetectModel(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "cat /proc/device-tree/model 2>/dev/null || true")
	if err != nil {
		return "", fmt.Errorf("reading device model: %w", err)
	}
	// The device tree pads the model string with NUL bytes.
	return strings.TrimSpace(strings.Trim(out, "\x00")), nil
}

// DetectArchitecture resolves the target architecture, preferring the
// device-model catalog and falling back to the reported machine type.
// The target is queried live every session; nothing is cached because
// the device can change out-of-band.
func (s *Session) DetectArchitecture(ctx context.Context) (catalog.Architecture, error) {
	if model, err := s.DetectModel(ctx); err == nil && model != "" {
		if cat, catErr := catalog.Get(); catErr == nil {
			if arch, ok := cat.DeviceArchitecture(model); ok {
				return arch, nil
			}
		}
	}

	out, err := s.run(ctx, "uname -m")
	if err != nil {
		return "", fmt.Errorf("reading target architecture: %w", err)
	}
	switch machine := strings.TrimSpace(out); machine {
	case "armv6l", "armv7l":
		return catalog.ArchARM32, nil
	case "aarch64", "arm64":
		return catalog.ArchARM64, nil
	case "x86_64":
		return catalog.ArchAMD64, nil
	default:
		return "", fmt.Errorf("unsupported target machine type %q", machine)
	}
}

// shQuote single-quotes a string for the remote shell.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

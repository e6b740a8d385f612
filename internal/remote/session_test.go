package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/blang/semver"

	"github.com/raspdbg/raspdbg/internal/catalog"
	"github.com/raspdbg/raspdbg/internal/connections"
)

// fakeConn scripts remote command behavior through a handler and
// records everything the session executes.
type fakeConn struct {
	handler   func(cmd string) (string, error)
	cmds      []string
	uploads   []string
	uploadErr error
	closed    bool
}

func (f *fakeConn) Run(_ context.Context, cmd string) (string, error) {
	f.cmds = append(f.cmds, cmd)
	if f.handler != nil {
		return f.handler(cmd)
	}
	return "", nil
}

func (f *fakeConn) Upload(_ context.Context, localDir, remoteDir string) error {
	f.uploads = append(f.uploads, localDir+" -> "+remoteDir)
	return f.uploadErr
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) count(substr string) int {
	n := 0
	for _, cmd := range f.cmds {
		if strings.Contains(cmd, substr) {
			n++
		}
	}
	return n
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(context.Context, *connections.Profile) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func testProfile() *connections.Profile {
	return &connections.Profile{Name: "pi-lab", Host: "pi.local", User: "pi", KeyPath: "/k"}
}

func testEntry() catalog.Entry {
	return catalog.Entry{
		Name:         "3.1.426",
		Version:      "3.1.32",
		Architecture: catalog.ArchARM32,
		Link:         "https://example.com/dotnet-sdk-3.1.426-linux-arm.tar.gz",
		Semver:       semver.MustParse("3.1.32"),
	}
}

func connect(t *testing.T, conn *fakeConn) *Session {
	t.Helper()
	s, err := Connect(context.Background(), testProfile(), Options{AdapterScriptURL: "https://example.com/getvsdbg.sh"}, &fakeDialer{conn: conn})
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	return s
}

// installSim simulates a target where installs take effect: presence
// checks fail until the matching commit command has run.
type installSim struct {
	present map[string]bool
	failOn  string
}

func newInstallSim() *installSim {
	return &installSim{present: make(map[string]bool)}
}

func (sim *installSim) handle(cmd string) (string, error) {
	if sim.failOn != "" && strings.Contains(cmd, sim.failOn) {
		return "", fmt.Errorf("simulated failure in %q", sim.failOn)
	}
	if path, ok := strings.CutPrefix(cmd, "test -e "); ok {
		path = strings.Trim(path, "'")
		if !sim.present[path] {
			return "", errors.New("exit status 1")
		}
		return "", nil
	}
	if strings.Contains(cmd, "touch ") {
		// Commit writes the marker last.
		idx := strings.Index(cmd, "touch ")
		marker := strings.Trim(strings.TrimSpace(cmd[idx+len("touch "):]), "'")
		sim.present[marker] = true
	}
	if strings.Contains(cmd, "bash /dev/stdin") {
		sim.present["/home/pi/vsdbg/vsdbg"] = true
	}
	if strings.Contains(cmd, "mkdir -p '/home/pi/vsdbg/") {
		start := strings.Index(cmd, "mkdir -p '") + len("mkdir -p '")
		dir := cmd[start : strings.Index(cmd[start:], "'")+start]
		sim.present[dir] = true
	}
	return "", nil
}

func TestConnect(t *testing.T) {
	t.Run("success reaches connected", func(t *testing.T) {
		s := connect(t, &fakeConn{})
		if s.State() != StateConnected {
			t.Errorf("expected connected, got %s", s.State())
		}
	})

	t.Run("dial failure is fatal for the attempt", func(t *testing.T) {
		_, err := Connect(context.Background(), testProfile(), Options{}, &fakeDialer{err: errors.New("auth failed")})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "pi.local:22") {
			t.Errorf("expected address in error, got %v", err)
		}
	})
}

func TestEnsureRuntimeInstalled(t *testing.T) {
	t.Run("installs once then no-ops", func(t *testing.T) {
		sim := newInstallSim()
		conn := &fakeConn{handler: sim.handle}
		s := connect(t, conn)

		if err := s.EnsureRuntimeInstalled(context.Background(), testEntry()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := conn.count("curl -fsSL -o"); got != 1 {
			t.Errorf("expected 1 download on first call, got %d", got)
		}
		if got := conn.count("tar -xzf"); got != 1 {
			t.Errorf("expected 1 extract on first call, got %d", got)
		}

		// Second call with no external change: verified no-op.
		if err := s.EnsureRuntimeInstalled(context.Background(), testEntry()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := conn.count("curl -fsSL -o"); got != 1 {
			t.Errorf("expected no second download, got %d", got)
		}
		if got := conn.count("tar -xzf"); got != 1 {
			t.Errorf("expected no second extract, got %d", got)
		}
	})

	t.Run("stages before committing", func(t *testing.T) {
		sim := newInstallSim()
		conn := &fakeConn{handler: sim.handle}
		s := connect(t, conn)

		if err := s.EnsureRuntimeInstalled(context.Background(), testEntry()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		joined := strings.Join(conn.cmds, "\n")
		staging := strings.Index(joined, ".staging-3.1.32")
		commit := strings.Index(joined, "mv ")
		if staging == -1 || commit == -1 || staging > commit {
			t.Errorf("expected extract into staging before rename, got:\n%s", joined)
		}
	})

	t.Run("download failure names the step", func(t *testing.T) {
		sim := newInstallSim()
		sim.failOn = "curl -fsSL -o"
		s := connect(t, &fakeConn{handler: sim.handle})

		err := s.EnsureRuntimeInstalled(context.Background(), testEntry())
		var stepError *StepError
		if !errors.As(err, &stepError) {
			t.Fatalf("expected StepError, got %v", err)
		}
		if stepError.Step != StepDownload {
			t.Errorf("expected download step, got %s", stepError.Step)
		}
	})

	t.Run("extract failure names the step", func(t *testing.T) {
		sim := newInstallSim()
		sim.failOn = "tar -xzf"
		s := connect(t, &fakeConn{handler: sim.handle})

		err := s.EnsureRuntimeInstalled(context.Background(), testEntry())
		var stepError *StepError
		if !errors.As(err, &stepError) {
			t.Fatalf("expected StepError, got %v", err)
		}
		if stepError.Step != StepExtract {
			t.Errorf("expected extract step, got %s", stepError.Step)
		}
	})

	t.Run("failed verb returns session to connected", func(t *testing.T) {
		sim := newInstallSim()
		sim.failOn = "curl"
		s := connect(t, &fakeConn{handler: sim.handle})

		if err := s.EnsureRuntimeInstalled(context.Background(), testEntry()); err == nil {
			t.Fatal("expected error")
		}
		if s.State() != StateConnected {
			t.Errorf("expected connected after failed verb, got %s", s.State())
		}
	})
}

func TestEnsureDebugAdapterInstalled(t *testing.T) {
	t.Run("installs once then no-ops", func(t *testing.T) {
		sim := newInstallSim()
		conn := &fakeConn{handler: sim.handle}
		s := connect(t, conn)

		if err := s.EnsureDebugAdapterInstalled(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.EnsureDebugAdapterInstalled(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := conn.count("bash /dev/stdin"); got != 1 {
			t.Errorf("expected 1 installer run, got %d", got)
		}
	})

	t.Run("verify failure when installer leaves nothing", func(t *testing.T) {
		// Handler that accepts the installer but never creates the binary.
		conn := &fakeConn{handler: func(cmd string) (string, error) {
			if strings.HasPrefix(cmd, "test -e ") {
				return "", errors.New("exit status 1")
			}
			return "", nil
		}}
		s := connect(t, conn)

		err := s.EnsureDebugAdapterInstalled(context.Background())
		var stepError *StepError
		if !errors.As(err, &stepError) {
			t.Fatalf("expected StepError, got %v", err)
		}
		if stepError.Step != StepVerify {
			t.Errorf("expected verify step, got %s", stepError.Step)
		}
	})
}

func TestUploadProgram(t *testing.T) {
	t.Run("mirrors into per-program directory", func(t *testing.T) {
		sim := newInstallSim()
		conn := &fakeConn{handler: sim.handle}
		s := connect(t, conn)

		dir, err := s.UploadProgram(context.Background(), "/local/publish", "myapp")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir != "/home/pi/vsdbg/myapp" {
			t.Errorf("expected /home/pi/vsdbg/myapp, got %q", dir)
		}
		if len(conn.uploads) != 1 || conn.uploads[0] != "/local/publish -> /home/pi/vsdbg/myapp" {
			t.Errorf("unexpected uploads %v", conn.uploads)
		}
		if conn.count("rm -rf '/home/pi/vsdbg/myapp'") != 1 {
			t.Error("expected full overwrite to clear the remote directory first")
		}
		if s.State() != StateReady {
			t.Errorf("expected ready after upload, got %s", s.State())
		}
	})

	t.Run("transfer failure names the step", func(t *testing.T) {
		sim := newInstallSim()
		conn := &fakeConn{handler: sim.handle, uploadErr: errors.New("connection reset")}
		s := connect(t, conn)

		_, err := s.UploadProgram(context.Background(), "/local/publish", "myapp")
		var stepError *StepError
		if !errors.As(err, &stepError) {
			t.Fatalf("expected StepError, got %v", err)
		}
		if stepError.Step != StepUpload {
			t.Errorf("expected upload step, got %s", stepError.Step)
		}
	})
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	s := connect(t, conn)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conn.closed {
		t.Error("expected underlying channel closed")
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed, got %s", s.State())
	}

	// Verbs on a closed session fail with ErrClosed.
	if err := s.EnsureDebugAdapterInstalled(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Closing twice is fine.
	if err := s.Close(); err != nil {
		t.Errorf("unexpected error on double close: %v", err)
	}
}

func TestDetectArchitecture(t *testing.T) {
	t.Run("known model via catalog", func(t *testing.T) {
		conn := &fakeConn{handler: func(cmd string) (string, error) {
			if strings.Contains(cmd, "device-tree/model") {
				return "Raspberry Pi 4 Model B\x00", nil
			}
			return "", nil
		}}
		s := connect(t, conn)

		arch, err := s.DetectArchitecture(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if arch != catalog.ArchARM64 {
			t.Errorf("expected arm64, got %s", arch)
		}
	})

	t.Run("unknown model falls back to machine type", func(t *testing.T) {
		conn := &fakeConn{handler: func(cmd string) (string, error) {
			if strings.Contains(cmd, "device-tree/model") {
				return "", nil
			}
			if cmd == "uname -m" {
				return "armv7l\n", nil
			}
			return "", nil
		}}
		s := connect(t, conn)

		arch, err := s.DetectArchitecture(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if arch != catalog.ArchARM32 {
			t.Errorf("expected arm32, got %s", arch)
		}
	})

	t.Run("unsupported machine type", func(t *testing.T) {
		conn := &fakeConn{handler: func(cmd string) (string, error) {
			if cmd == "uname -m" {
				return "mips\n", nil
			}
			return "", nil
		}}
		s := connect(t, conn)

		if _, err := s.DetectArchitecture(context.Background()); err == nil {
			t.Error("expected error for unsupported machine type")
		}
	})
}

func TestShQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "'plain'"},
		{in: "with space", want: "'with space'"},
		{in: "it's", want: `'it'\''s'`},
	}
	for _, tt := range tests {
		if got := shQuote(tt.in); got != tt.want {
			t.Errorf("shQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

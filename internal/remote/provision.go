package remote

import (
	"context"
	"fmt"

	"github.com/raspdbg/raspdbg/internal/catalog"
)

// EnsureRuntimeInstalled makes sure the runtime for the catalog entry
// is present under the install root. Presence of the completion marker
// makes this a no-op, so repeated sessions never re-download the
// package. A fresh install is staged and renamed into place, with the
// marker written only after a successful commit.
func (s *Session) EnsureRuntimeInstalled(ctx context.Context, entry catalog.Entry) (err error) {
	if err := s.beginVerb(); err != nil {
		return err
	}
	defer func() { s.endVerb(err) }()

	const verb = "runtime install"
	version := entry.Semver.String()
	dir := s.layout.RuntimeDir(version)
	marker := s.layout.RuntimeMarker(version)

	if s.pathExists(ctx, marker) {
		return nil
	}

	staging := s.layout.RuntimeStagingDir(version)
	archive := "/tmp/raspdbg-sdk-" + version + ".tar.gz"

	if _, err := s.run(ctx, fmt.Sprintf("curl -fsSL -o %s %s", shQuote(archive), shQuote(entry.Link))); err != nil {
		return stepErr(verb, StepDownload, err)
	}

	extract := fmt.Sprintf("rm -rf %[1]s && mkdir -p %[1]s && tar -xzf %[2]s -C %[1]s && rm -f %[2]s",
		shQuote(staging), shQuote(archive))
	if _, err := s.run(ctx, extract); err != nil {
		return stepErr(verb, StepExtract, err)
	}

	commit := fmt.Sprintf("rm -rf %[1]s && mv %[2]s %[1]s && touch %[3]s",
		shQuote(dir), shQuote(staging), shQuote(marker))
	if _, err := s.run(ctx, commit); err != nil {
		return stepErr(verb, StepCommit, err)
	}

	if !s.pathExists(ctx, marker) {
		return stepErr(verb, StepVerify, fmt.Errorf("runtime %s missing after install", version))
	}
	return nil
}

// EnsureDebugAdapterInstalled makes sure the vsdbg debug adapter is
// present at its fixed path. The installer script handles the
// architecture-specific download.
func (s *Session) EnsureDebugAdapterInstalled(ctx context.Context) (err error) {
	if err := s.beginVerb(); err != nil {
		return err
	}
	defer func() { s.endVerb(err) }()

	const verb = "debug adapter install"
	adapter := s.layout.AdapterPath()

	if s.pathExists(ctx, adapter) {
		return nil
	}

	install := fmt.Sprintf("curl -fsSL %s | bash /dev/stdin -v latest -l %s",
		shQuote(s.opts.AdapterScriptURL), shQuote(s.layout.BaseDir()))
	if _, err := s.run(ctx, install); err != nil {
		return stepErr(verb, StepDownload, err)
	}

	if !s.pathExists(ctx, adapter) {
		return stepErr(verb, StepVerify, fmt.Errorf("debug adapter missing at %s after install", adapter))
	}
	return nil
}

// UploadProgram mirrors the published output tree to the per-user,
// per-program remote directory and returns that directory. The remote
// tree is replaced wholesale: published output is small, and a full
// overwrite never leaves stale files behind.
func (s *Session) UploadProgram(ctx context.Context, localDir, program string) (dir string, err error) {
	if err := s.beginVerb(); err != nil {
		return "", err
	}
	defer func() { s.endVerb(err) }()

	const verb = "program upload"
	dir = s.layout.ProgramDir(program)

	if _, err := s.run(ctx, fmt.Sprintf("rm -rf %[1]s && mkdir -p %[1]s", shQuote(dir))); err != nil {
		return "", stepErr(verb, StepUpload, err)
	}
	if err := s.conn.Upload(ctx, localDir, dir); err != nil {
		return "", stepErr(verb, StepUpload, err)
	}
	if !s.pathExists(ctx, dir) {
		return "", stepErr(verb, StepVerify, fmt.Errorf("program directory %s missing after upload", dir))
	}
	return dir, nil
}

// pathExists checks file or directory presence on the target.
func (s *Session) pathExists(ctx context.Context, path string) bool {
	_, err := s.run(ctx, fmt.Sprintf("test -e %s", shQuote(path)))
	return err == nil
}

// Package sdk wraps the local dotnet toolchain: SDK inventory, version
// resolution and project publishing.
package sdk

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blang/semver"

	"github.com/raspdbg/raspdbg/internal/catalog"
)

// DotnetBinary is the local toolchain entry point.
const DotnetBinary = "dotnet"

// InstalledSDK is one SDK reported by the local toolchain. Version is
// nil when the catalog has no entry for it; that is not an error.
type InstalledSDK struct {
	Name    string
	Version *semver.Version
}

// Toolchain invokes the local dotnet toolchain.
type Toolchain struct {
	runner CommandRunner
	arch   catalog.Architecture

	mu        sync.Mutex
	installed []InstalledSDK
	listed    bool
}

// NewToolchain creates a Toolchain for the given host architecture.
func NewToolchain(runner CommandRunner, arch catalog.Architecture) *Toolchain {
	return &Toolchain{
		runner: runner,
		arch:   arch,
	}
}

// ListInstalled returns the SDKs installed on the workstation, each
// cross-referenced against the catalog. The result is cached for the
// process lifetime: toolchain state is assumed stable for one session,
// a fresh listing requires a new process.
func (t *Toolchain) ListInstalled(ctx context.Context) ([]InstalledSDK, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listed {
		return t.installed, nil
	}

	if _, err := t.runner.LookPath(DotnetBinary); err != nil {
		return nil, fmt.Errorf("dotnet toolchain not found in PATH: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := t.runner.CommandContext(ctx, DotnetBinary, "--list-sdks")
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dotnet --list-sdks failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	cat, err := catalog.Get()
	if err != nil {
		return nil, err
	}

	sdks := parseListOutput(stdout.String())
	for i := range sdks {
		if v, ok := cat.ResolveVersion(sdks[i].Name, t.arch); ok {
			ver := v
			sdks[i].Version = &ver
		}
	}

	t.installed = sdks
	t.listed = true
	return sdks, nil
}

// parseListOutput extracts one SDK name per line: the text before the
// first whitespace ("8.0.412 [/usr/share/dotnet/sdk]" yields "8.0.412").
func parseListOutput(output string) []InstalledSDK {
	var sdks []InstalledSDK
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, _, _ := strings.Cut(line, " ")
		sdks = append(sdks, InstalledSDK{Name: name})
	}
	return sdks
}

// PublishOptions parameterizes a dotnet publish invocation.
type PublishOptions struct {
	// ProjectPath is the .csproj or project directory to publish.
	ProjectPath string
	// Configuration is the build configuration (Debug/Release).
	Configuration string
	// RuntimeID is the target runtime identifier (e.g. linux-arm64).
	RuntimeID string
	// OutputBase is the project output directory; the published tree is
	// written to <OutputBase>/<RuntimeID>.
	OutputBase string
}

// PublishResult reports where the published output landed and what the
// toolchain printed.
type PublishResult struct {
	OutputDir string
	Output    string
}

// Publish runs dotnet publish for the target runtime. A non-zero exit
// fails with the captured toolchain output attached.
func (t *Toolchain) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	if opts.ProjectPath == "" {
		return nil, fmt.Errorf("publish: project path is required")
	}
	if opts.Configuration == "" {
		opts.Configuration = "Debug"
	}
	if opts.RuntimeID == "" {
		opts.RuntimeID = t.arch.RuntimeID()
	}

	outputDir := filepath.Join(opts.OutputBase, opts.RuntimeID)

	var combined bytes.Buffer
	cmd := t.runner.CommandContext(ctx, DotnetBinary, "publish",
		opts.ProjectPath,
		"--configuration", opts.Configuration,
		"--runtime", opts.RuntimeID,
		"--no-self-contained",
		"--output", outputDir,
	)
	cmd.SetStdout(&combined)
	cmd.SetStderr(&combined)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dotnet publish failed: %w: %s", err, strings.TrimSpace(combined.String()))
	}

	return &PublishResult{
		OutputDir: outputDir,
		Output:    combined.String(),
	}, nil
}

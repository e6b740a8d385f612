// Package deploy orchestrates one debug deployment: publish the
// project locally, provision the target over SSH, upload the output
// and hand a launch descriptor to the debug front-end.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/raspdbg/raspdbg/internal/catalog"
	"github.com/raspdbg/raspdbg/internal/config"
	"github.com/raspdbg/raspdbg/internal/connections"
	"github.com/raspdbg/raspdbg/internal/diaglog"
	"github.com/raspdbg/raspdbg/internal/launch"
	"github.com/raspdbg/raspdbg/internal/notify"
	"github.com/raspdbg/raspdbg/internal/progress"
	"github.com/raspdbg/raspdbg/internal/remote"
	"github.com/raspdbg/raspdbg/internal/sdk"
)

// Phase names one stage of a deployment. Failures carry the phase so
// the user knows where the chain broke.
type Phase string

const (
	PhaseConnect   Phase = "connect"
	PhaseResolve   Phase = "resolve"
	PhasePublish   Phase = "publish"
	PhaseProvision Phase = "provision"
	PhaseUpload    Phase = "upload"
	PhaseLaunch    Phase = "launch"
)

// PhaseError wraps a failure with the phase it happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

// Error implements error.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

func phaseErr(phase Phase, err error) error {
	return &PhaseError{Phase: phase, Err: err}
}

// Request parameterizes one deployment.
type Request struct {
	// Profile is the target connection.
	Profile *connections.Profile
	// ProjectPath is the .csproj to publish.
	ProjectPath string
	// Program overrides the program name derived from the project file
	// (for projects that set an explicit AssemblyName).
	Program string
	// RuntimeVersion is the required runtime as major.minor (e.g. "8.0").
	RuntimeVersion string
	// Configuration is the build configuration (default Debug).
	Configuration string
	// ProgramArgs is the argument vector for the debugged program.
	ProgramArgs []string
	// StopAtEntry pauses the debugger at the program entry point.
	StopAtEntry bool
	// OutputBase overrides where published output lands
	// (default <project dir>/bin/raspdbg).
	OutputBase string
	// LaunchFrontEnd invokes the configured front-end with the
	// descriptor after a successful deploy.
	LaunchFrontEnd bool
}

// Result reports what a successful deployment produced.
type Result struct {
	Program        string
	Architecture   catalog.Architecture
	RuntimeVersion semver.Version
	RemoteDir      string
	ProgramPath    string
	Descriptor     *launch.Descriptor
	Elapsed        time.Duration
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithRunner sets the local command runner (for testing).
func WithRunner(r sdk.CommandRunner) Option {
	return func(d *Deployer) { d.runner = r }
}

// WithDialer sets the SSH dialer.
func WithDialer(dl remote.Dialer) Option {
	return func(d *Deployer) { d.dialer = dl }
}

// WithProgress sets the progress controller.
func WithProgress(p *progress.Controller) Option {
	return func(d *Deployer) { d.progress = p }
}

// WithNotifier sets the desktop notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Deployer) { d.notifier = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *diaglog.Logger) Option {
	return func(d *Deployer) { d.log = l }
}

// Deployer runs deployments against a loaded configuration.
type Deployer struct {
	cfg      *config.Config
	runner   sdk.CommandRunner
	dialer   remote.Dialer
	progress *progress.Controller
	notifier notify.Notifier
	log      *diaglog.Logger
}

// New creates a Deployer with production defaults.
func New(cfg *config.Config, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:      cfg,
		runner:   sdk.NewCommandRunner(),
		dialer:   remote.NewSSHDialer(nil, cfg.Deploy.ConnectTimeout),
		progress: progress.NewController(os.Stderr),
		notifier: notify.New(cfg.Notifications),
		log:      diaglog.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy runs the full chain. The first failing phase aborts the rest;
// nothing is retried automatically.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	program := req.Program
	if program == "" {
		program = programName(req.ProjectPath)
	}

	res, err := d.deploy(ctx, req, program)
	if err != nil {
		d.log.Errorf("deploy of %s failed: %v", program, err)
		if nerr := d.notifier.NotifyFailure(program, err); nerr != nil {
			d.log.Warnf("failure notification not delivered: %v", nerr)
		}
		return nil, err
	}

	res.Elapsed = time.Since(start)
	d.log.Infof("deploy of %s to %s finished in %s", program, req.Profile.Name, res.Elapsed)
	if nerr := d.notifier.NotifyDeployed(program, req.Profile.Name, res.Elapsed); nerr != nil {
		d.log.Warnf("success notification not delivered: %v", nerr)
	}
	return res, nil
}

func (d *Deployer) deploy(ctx context.Context, req Request, program string) (*Result, error) {
	d.log.Infof("deploying %s to %s", program, req.Profile.Address())

	var session *remote.Session
	err := d.progress.Run(fmt.Sprintf("Connecting to %s", req.Profile.Name), func() error {
		var err error
		session, err = remote.Connect(ctx, req.Profile, remote.Options{
			Root:             d.cfg.Deploy.Root,
			AdapterScriptURL: d.cfg.Deploy.AdapterScriptURL,
			CommandTimeout:   d.cfg.Deploy.CommandTimeout,
		}, d.dialer)
		return err
	})
	if err != nil {
		return nil, phaseErr(PhaseConnect, err)
	}
	defer session.Close()

	var arch catalog.Architecture
	err = d.progress.Run("Detecting target architecture", func() error {
		var err error
		arch, err = session.DetectArchitecture(ctx)
		return err
	})
	if err != nil {
		return nil, phaseErr(PhaseConnect, err)
	}
	d.log.Infof("target architecture: %s", arch)

	toolchain := sdk.NewToolchain(d.runner, arch)

	var entry catalog.Entry
	err = d.progress.Run(fmt.Sprintf("Resolving .NET runtime %s", req.RuntimeVersion), func() error {
		installed, err := toolchain.ListInstalled(ctx)
		if err != nil {
			return err
		}
		version, ok := sdk.ResolveTargetVersion(req.RuntimeVersion, installed)
		if !ok {
			return fmt.Errorf("no installed SDK satisfies runtime %s; install one with 'dotnet --list-sdks' to verify", req.RuntimeVersion)
		}
		cat, err := catalog.Get()
		if err != nil {
			return err
		}
		entry, ok = cat.FindByVersion(version, arch)
		if !ok {
			return fmt.Errorf("runtime %s has no %s build in the catalog", version, arch)
		}
		return nil
	})
	if err != nil {
		return nil, phaseErr(PhaseResolve, err)
	}
	d.log.Infof("resolved runtime %s (%s)", entry.Semver, entry.Architecture)

	outputBase := req.OutputBase
	if outputBase == "" {
		outputBase = filepath.Join(filepath.Dir(req.ProjectPath), "bin", "raspdbg")
	}
	assembly := program + ".dll"

	var published *sdk.PublishResult
	err = d.progress.Run(fmt.Sprintf("Publishing %s", program), func() error {
		var err error
		published, err = toolchain.Publish(ctx, sdk.PublishOptions{
			ProjectPath:   req.ProjectPath,
			Configuration: req.Configuration,
			RuntimeID:     arch.RuntimeID(),
			OutputBase:    outputBase,
		})
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(published.OutputDir, assembly)); err != nil {
			return fmt.Errorf("published output has no %s: %w", assembly, err)
		}
		return nil
	})
	if err != nil {
		return nil, phaseErr(PhasePublish, err)
	}
	d.log.Infof("published to %s", published.OutputDir)

	err = d.progress.Run(fmt.Sprintf("Installing .NET runtime %s", entry.Semver), func() error {
		return session.EnsureRuntimeInstalled(ctx, entry)
	})
	if err != nil {
		return nil, phaseErr(PhaseProvision, err)
	}

	err = d.progress.Run("Installing debug adapter", func() error {
		return session.EnsureDebugAdapterInstalled(ctx)
	})
	if err != nil {
		return nil, phaseErr(PhaseProvision, err)
	}

	var remoteDir string
	err = d.progress.Run(fmt.Sprintf("Uploading %s", program), func() error {
		var err error
		remoteDir, err = session.UploadProgram(ctx, published.OutputDir, program)
		return err
	})
	if err != nil {
		return nil, phaseErr(PhaseUpload, err)
	}

	descriptor, err := launch.Build(launch.Params{
		Profile:     req.Profile,
		AdapterPath: session.Layout().AdapterPath(),
		ProgramPath: session.Layout().ProgramPath(program, assembly),
		Args:        req.ProgramArgs,
		StopAtEntry: req.StopAtEntry,
	})
	if err != nil {
		return nil, phaseErr(PhaseLaunch, err)
	}

	if req.LaunchFrontEnd {
		if err := d.runFrontEnd(ctx, descriptor); err != nil {
			return nil, phaseErr(PhaseLaunch, err)
		}
	}

	return &Result{
		Program:        program,
		Architecture:   arch,
		RuntimeVersion: entry.Semver,
		RemoteDir:      remoteDir,
		ProgramPath:    session.Layout().ProgramPath(program, assembly),
		Descriptor:     descriptor,
	}, nil
}

// runFrontEnd hands the descriptor to the configured front-end. The
// descriptor file lives only for the duration of the invocation.
func (d *Deployer) runFrontEnd(ctx context.Context, descriptor *launch.Descriptor) error {
	command := d.cfg.FrontEnd.Command
	if command == "" {
		return fmt.Errorf("no debug front-end configured; set frontend.command in %s", d.cfg.FilePath())
	}

	return d.progress.Run("Starting debug front-end", func() error {
		return descriptor.WithFile(func(path string) error {
			args := append(append([]string(nil), d.cfg.FrontEnd.Args...), path)
			d.log.Debugf("starting front-end: %s %s", command, strings.Join(args, " "))

			cmd := d.runner.CommandContext(ctx, command, args...)
			cmd.SetStdout(os.Stdout)
			cmd.SetStderr(os.Stderr)
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("front-end %s failed: %w", command, err)
			}
			return nil
		})
	})
}

// programName derives the program name from the project file.
func programName(projectPath string) string {
	base := filepath.Base(projectPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

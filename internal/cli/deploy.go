package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/raspdbg/raspdbg/internal/config"
	"github.com/raspdbg/raspdbg/internal/connections"
	"github.com/raspdbg/raspdbg/internal/deploy"
	"github.com/raspdbg/raspdbg/internal/diaglog"
	"github.com/raspdbg/raspdbg/internal/projmap"
	"github.com/raspdbg/raspdbg/internal/remote"
	"github.com/raspdbg/raspdbg/internal/sdk"
)

const (
	// timeRound trims elapsed-time output to something readable.
	timeRound = 100 * time.Millisecond
	// diagLogMaxSize caps the diagnostic log before rotation.
	diagLogMaxSize = 5 << 20
)

// deployFlags holds the flags shared by deploy and debug.
type deployFlags struct {
	runtime       string
	configuration string
	programArgs   []string
	stopAtEntry   bool
	output        string
	remember      bool
}

func (f *deployFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.runtime, "runtime", "", "Required runtime as major.minor (default from the project file)")
	cmd.Flags().StringVar(&f.configuration, "configuration", "", "Build configuration (default Debug)")
	cmd.Flags().StringArrayVar(&f.programArgs, "arg", nil, "Program argument (repeatable)")
	cmd.Flags().BoolVar(&f.stopAtEntry, "stop-at-entry", false, "Pause the debugger at the program entry point")
	cmd.Flags().StringVar(&f.output, "publish-output", "", "Base directory for published output")
	cmd.Flags().BoolVar(&f.remember, "remember", true, "Remember these settings for the project")
}

// newDeployCmd creates the deploy command.
func (cli *CLI) newDeployCmd() *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "deploy <project>",
		Short: "Publish a project and provision it on the target",
		Long: `Publish the project for the target's architecture, make sure the
matching .NET runtime and the vsdbg debug adapter are installed on the
device, and upload the published output. The launch descriptor is
printed but no debug front-end is started.

Examples:
  # Deploy to the default connection
  raspdbg deploy ./src/MyApp/MyApp.csproj

  # Deploy to a specific device with program arguments
  raspdbg deploy ./src/MyApp/MyApp.csproj -c bench --arg=--listen --arg=:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runDeploy(cmd, args[0], flags, false)
		},
	}

	flags.register(cmd)
	return cmd
}

// newDebugCmd creates the debug command.
func (cli *CLI) newDebugCmd() *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "debug <project>",
		Short: "Deploy a project and start the debug front-end",
		Long: `Run the full deploy chain and then start the configured debug
front-end with the launch descriptor. Set frontend.command in the
configuration file to point at your front-end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runDeploy(cmd, args[0], flags, true)
		},
	}

	flags.register(cmd)
	return cmd
}

// runDeploy executes the deploy chain for a project.
func (cli *CLI) runDeploy(cmd *cobra.Command, projectPath string, flags deployFlags, launchFrontEnd bool) error {
	format, err := ParseOutputFormat(cli.outputFlag)
	if err != nil {
		return err
	}

	projectPath, err = filepath.Abs(projectPath)
	if err != nil {
		return err
	}
	project, err := sdk.LoadProject(projectPath)
	if err != nil {
		return err
	}

	settings, settingsStore, err := cli.projectSettings(projectPath)
	if err != nil && cli.verboseFlag {
		fmt.Fprintf(os.Stderr, "Warning: project settings unavailable: %v\n", err)
	}
	cli.applyRemembered(settings, &flags)

	profile, err := cli.targetProfile()
	if err != nil {
		return err
	}

	runtimeVersion := flags.runtime
	if runtimeVersion == "" {
		runtimeVersion, err = project.RuntimeRequirement()
		if err != nil {
			return err
		}
	}

	logger, err := cli.openDiagnosticLog()
	if err != nil {
		return err
	}
	defer logger.Close()

	dialer := remote.NewSSHDialer(cli.Keyring, cli.Config.Deploy.ConnectTimeout)
	deployer := deploy.New(cli.Config,
		deploy.WithDialer(dialer),
		deploy.WithLogger(logger),
	)

	result, err := deployer.Deploy(cmd.Context(), deploy.Request{
		Profile:        profile,
		ProjectPath:    projectPath,
		Program:        project.AssemblyName,
		RuntimeVersion: runtimeVersion,
		Configuration:  flags.configuration,
		ProgramArgs:    flags.programArgs,
		StopAtEntry:    flags.stopAtEntry,
		OutputBase:     flags.output,
		LaunchFrontEnd: launchFrontEnd,
	})
	if err != nil {
		return err
	}

	if flags.remember && settingsStore != nil {
		cli.rememberSettings(settingsStore, projectPath, profile, flags)
	}

	output := NewOutputWriter(format)
	return output.Write(result, func() {
		fmt.Printf("Deployed %s (%s, .NET %s) to %s in %s\n",
			result.Program, result.Architecture, result.RuntimeVersion, profile.Name, result.Elapsed.Round(timeRound))
		fmt.Printf("Remote program: %s\n", result.ProgramPath)
		if !launchFrontEnd {
			fmt.Printf("Debug adapter:  %s\n", result.Descriptor.Adapter)
		}
	})
}

// projectSettings loads the per-project settings store and the entry
// for this project, if any.
func (cli *CLI) projectSettings(projectPath string) (*projmap.Settings, *projmap.Store, error) {
	paths := config.GetPaths()
	store, err := projmap.Load(filepath.Join(paths.DataDir, projmap.FileName))
	if err != nil {
		return nil, nil, err
	}
	return store.Get(projectPath), store, nil
}

// applyRemembered fills unset flags from remembered project settings.
func (cli *CLI) applyRemembered(settings *projmap.Settings, flags *deployFlags) {
	if settings == nil {
		return
	}
	if cli.connectionFlag == "" && settings.Connection != "" {
		cli.connectionFlag = settings.Connection
	}
	if flags.configuration == "" {
		flags.configuration = settings.Configuration
	}
	if len(flags.programArgs) == 0 {
		flags.programArgs = settings.Args
	}
	if !flags.stopAtEntry {
		flags.stopAtEntry = settings.StopAtEntry
	}
}

// rememberSettings persists the effective settings for the next deploy
// of the same project. Persistence failures only warn.
func (cli *CLI) rememberSettings(store *projmap.Store, projectPath string, profile *connections.Profile, flags deployFlags) {
	store.Put(&projmap.Settings{
		ProjectPath:   projectPath,
		Connection:    profile.Name,
		Configuration: flags.configuration,
		Args:          flags.programArgs,
		StopAtEntry:   flags.stopAtEntry,
	})
	if err := store.Save(); err != nil && cli.verboseFlag {
		fmt.Fprintf(os.Stderr, "Warning: could not save project settings: %v\n", err)
	}
}

// openDiagnosticLog builds the logger from the log configuration.
func (cli *CLI) openDiagnosticLog() (*diaglog.Logger, error) {
	if cli.Config.Log.File == "" && !cli.verboseFlag {
		return diaglog.Discard(), nil
	}

	level, err := diaglog.ParseLevel(cli.Config.Log.Level)
	if err != nil {
		return nil, err
	}
	if cli.verboseFlag {
		level = diaglog.LevelDebug
	}

	return diaglog.New(diaglog.Config{
		Level:    level,
		FilePath: cli.Config.Log.File,
		MaxSize:  diagLogMaxSize,
	})
}

// Package cli provides the command-line interface for raspdbg.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raspdbg/raspdbg/internal/config"
	"github.com/raspdbg/raspdbg/internal/connections"
	"github.com/raspdbg/raspdbg/internal/keyring"
	"github.com/raspdbg/raspdbg/internal/utils"
)

// ConnectionEnvVar selects the target connection when no flag is given.
const ConnectionEnvVar = "RASPDBG_CONNECTION"

// CLI holds the application state for the CLI.
type CLI struct {
	Config   *config.Config
	Registry *connections.Registry
	Keyring  keyring.Store
	rootCmd  *cobra.Command

	// Flags
	connectionFlag string
	verboseFlag    bool
	outputFlag     string
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{
		Keyring: keyring.DefaultStore(),
	}

	cli.rootCmd = &cobra.Command{
		Use:   "raspdbg [command]",
		Short: "Raspdbg - remote .NET debugging for single-board computers",
		Long: `Raspdbg publishes a .NET project for an ARM target, provisions the
matching runtime and the vsdbg debug adapter on the device over SSH,
uploads the program and hands a launch descriptor to your debug
front-end.

Typical workflow:
  1. Register the device:   raspdbg connection add pi4 --host=10.0.0.5 --user=pi
  2. Verify the channel:    raspdbg connection test pi4
  3. Deploy and debug:      raspdbg debug ./src/MyApp/MyApp.csproj`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Global flags
	cli.rootCmd.PersistentFlags().StringVarP(&cli.connectionFlag, "connection", "c", "", "Use a specific connection")
	cli.rootCmd.PersistentFlags().BoolVarP(&cli.verboseFlag, "verbose", "v", false, "Enable verbose output")
	cli.rootCmd.PersistentFlags().StringVarP(&cli.outputFlag, "output", "o", "text", "Output format (text, json)")

	// Add commands
	cli.addCommands()

	return cli
}

// addCommands adds all subcommands to the root command.
func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newVersionCmd(),
		cli.newConnectionCmd(),
		cli.newSDKCmd(),
		cli.newDeployCmd(),
		cli.newDebugCmd(),
		cli.newDoctorCmd(),
		cli.newCompletionCmd(),
	)
}

// initialize loads configuration and the connection registry.
func (cli *CLI) initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cli.Config = cfg

	reg, err := connections.Load()
	if err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}
	cli.Registry = reg

	if cli.connectionFlag == "" {
		if env := os.Getenv(ConnectionEnvVar); env != "" {
			if !utils.IsValidConnectionName(env) {
				if cli.verboseFlag {
					fmt.Fprintf(os.Stderr, "Warning: %s contains an invalid connection name\n", ConnectionEnvVar)
				}
			} else {
				cli.connectionFlag = env
			}
		}
	}

	return nil
}

// targetProfile resolves the connection to operate on: the --connection
// flag (or environment), else the registry default.
func (cli *CLI) targetProfile() (*connections.Profile, error) {
	if cli.connectionFlag != "" {
		return cli.Registry.Get(cli.connectionFlag)
	}
	profile, err := cli.Registry.GetDefault()
	if err != nil {
		return nil, fmt.Errorf("%w; add one with 'raspdbg connection add'", err)
	}
	return profile, nil
}

// Execute runs the CLI.
func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

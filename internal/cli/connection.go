package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raspdbg/raspdbg/internal/connections"
	"github.com/raspdbg/raspdbg/internal/keyring"
	"github.com/raspdbg/raspdbg/internal/remote"
	"github.com/raspdbg/raspdbg/internal/utils"
)

// ConnectionListOutput represents connection list output for JSON.
type ConnectionListOutput struct {
	Connections []connections.Profile `json:"connections"`
}

// newConnectionCmd creates the connection command group.
func (cli *CLI) newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connection",
		Aliases: []string{"connections", "conn"},
		Short:   "Manage target device connections",
		Long: `Manage SSH connection profiles for target devices.

Examples:
  # List all connections
  raspdbg connection list

  # Register a Raspberry Pi
  raspdbg connection add pi4 --host=10.0.0.5 --user=pi

  # Verify the channel and report the device
  raspdbg connection test pi4

  # Make a connection the default target
  raspdbg connection set-default pi4`,
	}

	cmd.AddCommand(
		cli.newConnectionListCmd(),
		cli.newConnectionAddCmd(),
		cli.newConnectionRemoveCmd(),
		cli.newConnectionSetDefaultCmd(),
		cli.newConnectionTestCmd(),
		cli.newConnectionPassphraseCmd(),
	)

	return cmd
}

// newConnectionListCmd creates the connection list command.
func (cli *CLI) newConnectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all configured connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}
			return cli.runConnectionList(format)
		},
	}
}

// runConnectionList displays all configured connections.
func (cli *CLI) runConnectionList(format OutputFormat) error {
	output := NewOutputWriter(format)
	profiles := cli.Registry.List()
	listOutput := ConnectionListOutput{Connections: profiles}

	if len(profiles) == 0 {
		return output.Write(listOutput, func() {
			fmt.Println("No connections configured.")
			fmt.Println()
			fmt.Println("Add one with: raspdbg connection add <name> --host=<address> --user=<user>")
		})
	}

	return output.Write(listOutput, func() {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS\tUSER\tKEY")

		for _, p := range profiles {
			marker := ""
			if p.Default {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, p.Name, p.Address(), p.User, p.KeyPath)
		}

		// #nosec G104 - Flush error on stdout; if write fails, user will see incomplete output
		_ = w.Flush()

		fmt.Println()
		fmt.Println("* = default connection")
	})
}

// newConnectionAddCmd creates the connection add command.
func (cli *CLI) newConnectionAddCmd() *cobra.Command {
	var (
		host       string
		port       int
		user       string
		keyPath    string
		setDefault bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new target connection",
		Long: `Register a new target device connection.

The private key authenticates the SSH channel. If the key is
passphrase-protected, store the passphrase with
'raspdbg connection passphrase set <name>'.

Examples:
  # Register a Raspberry Pi with the default SSH key
  raspdbg connection add pi4 --host=10.0.0.5 --user=pi

  # Register with a dedicated key and non-standard port
  raspdbg connection add bench --host=bench.local --port=2222 --user=dev --key=~/.ssh/id_bench`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !utils.IsValidConnectionName(name) {
				return fmt.Errorf("invalid connection name %q", name)
			}
			if keyPath == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return errors.New("--key is required when the home directory is unknown")
				}
				keyPath = filepath.Join(home, ".ssh", "id_rsa")
			}

			profile := connections.Profile{
				Name:    name,
				Host:    host,
				Port:    port,
				User:    user,
				KeyPath: keyPath,
				Default: setDefault,
			}

			if err := cli.Registry.Add(profile); err != nil {
				return err
			}
			if err := cli.Registry.Save(); err != nil {
				return fmt.Errorf("failed to save connections: %w", err)
			}

			fmt.Printf("Added connection %q\n", name)
			if p, err := cli.Registry.Get(name); err == nil && p.Default {
				fmt.Println("This connection is now the default target.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Target host or address (required)")
	cmd.Flags().IntVar(&port, "port", 0, "SSH port (default 22)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "SSH user (required)")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "SSH private key path (default ~/.ssh/id_rsa)")
	cmd.Flags().BoolVar(&setDefault, "default", false, "Make this the default connection")

	if err := cmd.MarkFlagRequired("host"); err != nil {
		return nil
	}
	if err := cmd.MarkFlagRequired("user"); err != nil {
		return nil
	}

	return cmd
}

// newConnectionRemoveCmd creates the connection remove command.
func (cli *CLI) newConnectionRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a target connection",
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return cli.connectionNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := cli.Registry.Remove(name); err != nil {
				return err
			}
			if err := cli.Registry.Save(); err != nil {
				return fmt.Errorf("failed to save connections: %w", err)
			}

			// Stored passphrases die with the connection.
			if err := cli.Keyring.Delete(name); err != nil && !errors.Is(err, keyring.ErrSecretNotFound) {
				fmt.Fprintf(os.Stderr, "Warning: could not remove stored passphrase: %v\n", err)
			}

			fmt.Printf("Removed connection %q\n", name)
			return nil
		},
	}
	return cmd
}

// newConnectionSetDefaultCmd creates the connection set-default command.
func (cli *CLI) newConnectionSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <name>",
		Short: "Make a connection the default target",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return cli.connectionNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := cli.Registry.SetDefault(name); err != nil {
				return err
			}
			if err := cli.Registry.Save(); err != nil {
				return fmt.Errorf("failed to save connections: %w", err)
			}

			fmt.Printf("Connection %q is now the default target\n", name)
			return nil
		},
	}
}

// ConnectionTestOutput represents connection test output for JSON.
type ConnectionTestOutput struct {
	Connection   string `json:"connection"`
	Address      string `json:"address"`
	Model        string `json:"model,omitempty"`
	Architecture string `json:"architecture"`
}

// newConnectionTestCmd creates the connection test command.
func (cli *CLI) newConnectionTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [name]",
		Short: "Open the channel and report the device",
		Long: `Open an SSH channel to the connection (the default one when no name
is given), detect the device model and architecture, and close the
channel again. Nothing is installed or modified on the target.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}

			var profile *connections.Profile
			if len(args) == 1 {
				profile, err = cli.Registry.Get(args[0])
			} else {
				profile, err = cli.targetProfile()
			}
			if err != nil {
				return err
			}

			dialer := remote.NewSSHDialer(cli.Keyring, cli.Config.Deploy.ConnectTimeout)
			session, err := remote.Connect(cmd.Context(), profile, remote.Options{
				Root:           cli.Config.Deploy.Root,
				CommandTimeout: cli.Config.Deploy.CommandTimeout,
			}, dialer)
			if err != nil {
				return err
			}
			defer session.Close()

			model, err := session.DetectModel(cmd.Context())
			if err != nil {
				return err
			}
			arch, err := session.DetectArchitecture(cmd.Context())
			if err != nil {
				return err
			}

			result := ConnectionTestOutput{
				Connection:   profile.Name,
				Address:      profile.Address(),
				Model:        model,
				Architecture: string(arch),
			}

			output := NewOutputWriter(format)
			return output.Write(result, func() {
				fmt.Printf("Connection %q is reachable at %s\n", result.Connection, result.Address)
				if result.Model != "" {
					fmt.Printf("Device:       %s\n", result.Model)
				}
				fmt.Printf("Architecture: %s\n", result.Architecture)
			})
		},
	}
}

// newConnectionPassphraseCmd creates the connection passphrase command group.
func (cli *CLI) newConnectionPassphraseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passphrase",
		Short: "Manage stored private key passphrases",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name>",
			Short: "Store the key passphrase for a connection in the OS keyring",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := args[0]
				if _, err := cli.Registry.Get(name); err != nil {
					return err
				}

				fmt.Printf("Passphrase for %q: ", name)
				passphrase, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read passphrase: %w", err)
				}

				if err := cli.Keyring.Set(name, string(passphrase)); err != nil {
					return err
				}
				fmt.Printf("Stored passphrase for %q\n", name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear <name>",
			Short: "Remove the stored key passphrase for a connection",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := args[0]
				if err := cli.Keyring.Delete(name); err != nil && !errors.Is(err, keyring.ErrSecretNotFound) {
					return err
				}
				fmt.Printf("Cleared passphrase for %q\n", name)
				return nil
			},
		},
	)

	return cmd
}

// connectionNames returns all connection names for shell completion.
func (cli *CLI) connectionNames() []string {
	if cli.Registry == nil {
		return nil
	}
	profiles := cli.Registry.List()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raspdbg/raspdbg/internal/catalog"
	"github.com/raspdbg/raspdbg/internal/sdk"
)

// SDKListOutput represents sdk list output for JSON.
type SDKListOutput struct {
	SDKs []SDKInfo `json:"sdks"`
}

// SDKInfo is one installed SDK for output purposes.
type SDKInfo struct {
	Name    string `json:"name"`
	Runtime string `json:"runtime,omitempty"`
}

// newSDKCmd creates the sdk command group.
func (cli *CLI) newSDKCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdk",
		Short: "Inspect local SDKs and deployable runtimes",
	}

	cmd.AddCommand(
		cli.newSDKListCmd(),
		cli.newSDKCatalogCmd(),
	)

	return cmd
}

// newSDKListCmd creates the sdk list command.
func (cli *CLI) newSDKListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed .NET SDKs and their deployable runtimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}

			toolchain := sdk.NewToolchain(sdk.NewCommandRunner(), catalog.HostArchitecture())
			installed, err := toolchain.ListInstalled(cmd.Context())
			if err != nil {
				return err
			}

			infos := make([]SDKInfo, 0, len(installed))
			for _, s := range installed {
				info := SDKInfo{Name: s.Name}
				if s.Version != nil {
					info.Runtime = s.Version.String()
				}
				infos = append(infos, info)
			}

			output := NewOutputWriter(format)
			return output.Write(SDKListOutput{SDKs: infos}, func() {
				if len(infos) == 0 {
					fmt.Println("No .NET SDKs installed.")
					return
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SDK\tRUNTIME\tDEPLOYABLE")
				for _, info := range infos {
					deployable := "no"
					runtime := "-"
					if info.Runtime != "" {
						deployable = "yes"
						runtime = info.Runtime
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, runtime, deployable)
				}
				// #nosec G104 - Flush error on stdout; if write fails, user will see incomplete output
				_ = w.Flush()
			})
		},
	}
}

// CatalogOutput represents sdk catalog output for JSON.
type CatalogOutput struct {
	Architecture string          `json:"architecture"`
	Entries      []catalog.Entry `json:"entries"`
}

// newSDKCatalogCmd creates the sdk catalog command.
func (cli *CLI) newSDKCatalogCmd() *cobra.Command {
	var archFlag string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the runtimes raspdbg can provision on a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}

			arch := catalog.Architecture(archFlag)
			if arch.RuntimeID() == "" {
				return fmt.Errorf("invalid architecture %q: must be arm32, arm64 or amd64", archFlag)
			}

			cat, err := catalog.Get()
			if err != nil {
				return err
			}
			entries := cat.EntriesFor(arch)
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Semver.LT(entries[j].Semver)
			})

			output := NewOutputWriter(format)
			return output.Write(CatalogOutput{Architecture: string(arch), Entries: entries}, func() {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SDK\tRUNTIME\tRID")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Semver, arch.RuntimeID())
				}
				// #nosec G104 - Flush error on stdout; if write fails, user will see incomplete output
				_ = w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&archFlag, "arch", string(catalog.ArchARM64), "Target architecture (arm32, arm64, amd64)")

	return cmd
}

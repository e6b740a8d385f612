package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raspdbg/raspdbg/internal/catalog"
	"github.com/raspdbg/raspdbg/internal/config"
	"github.com/raspdbg/raspdbg/internal/sdk"
)

// CheckResult represents the result of a diagnostic check.
type CheckResult struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// CheckStatus represents the status of a diagnostic check.
type CheckStatus int

const (
	// CheckOK indicates the check passed.
	CheckOK CheckStatus = iota
	// CheckWarning indicates a non-critical issue.
	CheckWarning
	// CheckError indicates a critical failure.
	CheckError
)

// String returns the status name.
func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "OK"
	case CheckWarning:
		return "WARN"
	case CheckError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Icon returns the status icon for display.
func (s CheckStatus) Icon() string {
	switch s {
	case CheckOK:
		return "[OK]"
	case CheckWarning:
		return "[!!]"
	case CheckError:
		return "[XX]"
	default:
		return "[??]"
	}
}

// MarshalJSON implements json.Marshaler.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// DoctorOutput represents the doctor command output for JSON.
type DoctorOutput struct {
	Checks      []CheckResult `json:"checks"`
	HasErrors   bool          `json:"has_errors"`
	HasWarnings bool          `json:"has_warnings"`
}

// newDoctorCmd creates the doctor command.
func (cli *CLI) newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues",
		Long: `Run diagnostic checks to identify and troubleshoot common issues.

The doctor command checks:
  - Configuration file validity
  - The bundled SDK catalog
  - The local dotnet toolchain
  - Connection registry and key files
  - Keyring availability

Examples:
  # Run diagnostics
  raspdbg doctor

  # Run with suggested fixes
  raspdbg doctor --verbose

  # Output as JSON
  raspdbg doctor -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(cli.outputFlag)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			results := cli.runDiagnostics(ctx)

			hasErrors := false
			hasWarnings := false
			for _, r := range results {
				if r.Status == CheckError {
					hasErrors = true
				}
				if r.Status == CheckWarning {
					hasWarnings = true
				}
			}

			output := DoctorOutput{
				Checks:      results,
				HasErrors:   hasErrors,
				HasWarnings: hasWarnings,
			}

			writer := NewOutputWriter(format)
			writeErr := writer.Write(output, func() {
				fmt.Println("Raspdbg Diagnostics")
				fmt.Println("===================")
				fmt.Println()

				for _, r := range results {
					fmt.Printf("%s %s", r.Status.Icon(), r.Name)
					if r.Message != "" {
						fmt.Printf(": %s", r.Message)
					}
					fmt.Println()

					if (r.Status == CheckError || r.Status == CheckWarning) && r.Fix != "" && verbose {
						fmt.Printf("      -> %s\n", r.Fix)
					}
				}

				fmt.Println()
				switch {
				case hasErrors:
					fmt.Println("Some checks failed. Fix the errors above and re-run.")
				case hasWarnings:
					fmt.Println("Checks passed with warnings.")
				default:
					fmt.Println("All checks passed.")
				}
			})
			if writeErr != nil {
				return writeErr
			}

			if hasErrors {
				return errors.New("diagnostics found errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggested fixes")

	return cmd
}

// runDiagnostics executes all checks.
func (cli *CLI) runDiagnostics(ctx context.Context) []CheckResult {
	return []CheckResult{
		cli.checkConfig(),
		cli.checkCatalog(),
		cli.checkToolchain(ctx),
		cli.checkConnections(),
		cli.checkKeyring(),
	}
}

func (cli *CLI) checkConfig() CheckResult {
	result := CheckResult{Name: "Configuration"}

	paths := config.GetPaths()
	if _, err := os.Stat(paths.ConfigFile); os.IsNotExist(err) {
		result.Status = CheckOK
		result.Message = "using defaults (no config file)"
		return result
	}

	if _, err := config.Load(); err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		result.Fix = fmt.Sprintf("Fix or remove %s", paths.ConfigFile)
		return result
	}

	result.Status = CheckOK
	result.Message = paths.ConfigFile
	return result
}

func (cli *CLI) checkCatalog() CheckResult {
	result := CheckResult{Name: "SDK catalog"}

	cat, err := catalog.Get()
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		result.Fix = "Reinstall raspdbg; the bundled catalog is corrupted"
		return result
	}

	result.Status = CheckOK
	result.Message = fmt.Sprintf("%d deployable runtimes for arm64", len(cat.EntriesFor(catalog.ArchARM64)))
	return result
}

func (cli *CLI) checkToolchain(ctx context.Context) CheckResult {
	result := CheckResult{Name: "dotnet toolchain"}

	toolchain := sdk.NewToolchain(sdk.NewCommandRunner(), catalog.HostArchitecture())
	installed, err := toolchain.ListInstalled(ctx)
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		result.Fix = "Install the .NET SDK from https://dotnet.microsoft.com/download"
		return result
	}

	deployable := 0
	for _, s := range installed {
		if s.Version != nil {
			deployable++
		}
	}
	if deployable == 0 {
		result.Status = CheckWarning
		result.Message = fmt.Sprintf("%d SDKs installed, none deployable", len(installed))
		result.Fix = "Install an SDK listed by 'raspdbg sdk catalog'"
		return result
	}

	result.Status = CheckOK
	result.Message = fmt.Sprintf("%d SDKs installed, %d deployable", len(installed), deployable)
	return result
}

func (cli *CLI) checkConnections() CheckResult {
	result := CheckResult{Name: "Connections"}

	if cli.Registry.Len() == 0 {
		result.Status = CheckWarning
		result.Message = "no connections configured"
		result.Fix = "Register a device with 'raspdbg connection add'"
		return result
	}

	missing := 0
	for _, p := range cli.Registry.List() {
		if _, err := os.Stat(p.KeyPath); err != nil {
			missing++
		}
	}
	if missing > 0 {
		result.Status = CheckWarning
		result.Message = fmt.Sprintf("%d connections reference a missing key file", missing)
		result.Fix = "Check the key paths in 'raspdbg connection list'"
		return result
	}

	result.Status = CheckOK
	result.Message = fmt.Sprintf("%d connections configured", cli.Registry.Len())
	return result
}

func (cli *CLI) checkKeyring() CheckResult {
	result := CheckResult{Name: "Keyring"}

	if err := cli.Keyring.IsAvailable(); err != nil {
		result.Status = CheckWarning
		result.Message = err.Error()
		result.Fix = "Key passphrases cannot be stored; use keys without a passphrase or fix the keyring"
		return result
	}

	result.Status = CheckOK
	result.Message = "available"
	return result
}

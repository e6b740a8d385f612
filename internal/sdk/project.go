package sdk

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Project is the subset of a .csproj the deployer needs.
type Project struct {
	// TargetFramework is the raw moniker (net8.0, netcoreapp3.1).
	TargetFramework string
	// AssemblyName overrides the project-file-derived assembly name.
	AssemblyName string
	// OutputType is Exe for launchable projects.
	OutputType string
}

type projectFile struct {
	PropertyGroups []struct {
		TargetFramework  string `xml:"TargetFramework"`
		TargetFrameworks string `xml:"TargetFrameworks"`
		AssemblyName     string `xml:"AssemblyName"`
		OutputType       string `xml:"OutputType"`
	} `xml:"PropertyGroup"`
}

// LoadProject reads the project file. Multi-targeted projects use the
// first listed framework.
func LoadProject(path string) (*Project, error) {
	// #nosec G304 - path is the user's own project file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var pf projectFile
	if err := xml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}

	p := &Project{}
	for _, g := range pf.PropertyGroups {
		if p.TargetFramework == "" && g.TargetFramework != "" {
			p.TargetFramework = g.TargetFramework
		}
		if p.TargetFramework == "" && g.TargetFrameworks != "" {
			first, _, _ := strings.Cut(g.TargetFrameworks, ";")
			p.TargetFramework = strings.TrimSpace(first)
		}
		if p.AssemblyName == "" {
			p.AssemblyName = g.AssemblyName
		}
		if p.OutputType == "" {
			p.OutputType = g.OutputType
		}
	}

	if p.TargetFramework == "" {
		return nil, fmt.Errorf("project file %s declares no target framework", path)
	}
	return p, nil
}

// RuntimeRequirement converts the target framework moniker to the
// major.minor runtime requirement ("net8.0" and "netcoreapp3.1" both
// map to their version part). Platform-suffixed monikers like
// "net8.0-windows" are rejected: the target runs Linux.
func (p *Project) RuntimeRequirement() (string, error) {
	tfm := strings.ToLower(p.TargetFramework)

	if strings.Contains(tfm, "-") {
		return "", fmt.Errorf("target framework %q is platform-specific", p.TargetFramework)
	}

	for _, prefix := range []string{"netcoreapp", "net"} {
		version, ok := strings.CutPrefix(tfm, prefix)
		if !ok || version == "" || version[0] < '0' || version[0] > '9' {
			continue
		}
		if !strings.Contains(version, ".") {
			// Bare "net48" style monikers are .NET Framework.
			return "", fmt.Errorf("target framework %q is not a .NET (Core) runtime", p.TargetFramework)
		}
		return version, nil
	}
	return "", fmt.Errorf("unsupported target framework %q", p.TargetFramework)
}

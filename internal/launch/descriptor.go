// Package launch builds the descriptor an external debug front-end
// consumes to attach to the remote process.
package launch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/raspdbg/raspdbg/internal/connections"
)

// ProtocolVersion tags the descriptor schema.
const ProtocolVersion = "0.2.0"

// Console modes understood by the front-end.
const (
	ConsoleInternal   = "internalConsole"
	ConsoleIntegrated = "integratedTerminal"
)

// Descriptor is the serialized launch configuration. It is write-once:
// built, written to a transient file, consumed, deleted.
type Descriptor struct {
	Version        string          `json:"version"`
	Adapter        string          `json:"adapter"`
	AdapterArgs    []string        `json:"adapterArgs"`
	Configurations []Configuration `json:"configurations"`
}

// Configuration is one launchable program in the descriptor.
type Configuration struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Request     string   `json:"request"`
	Program     string   `json:"program"`
	Args        []string `json:"args,omitempty"`
	Cwd         string   `json:"cwd"`
	StopAtEntry bool     `json:"stopAtEntry"`
	Console     string   `json:"console"`
}

// Params is the input to Build.
type Params struct {
	// Profile is the target connection.
	Profile *connections.Profile
	// AdapterPath is the remote debug adapter launcher path.
	AdapterPath string
	// ProgramPath is the remote path of the assembly to launch.
	ProgramPath string
	// Args is the program argument vector.
	Args []string
	// WorkingDir defaults to the program's directory.
	WorkingDir string
	// StopAtEntry pauses at the program entry point.
	StopAtEntry bool
	// Console selects the console mode (default internalConsole).
	Console string
}

// Build produces the descriptor. Pure: no network or process side
// effects.
func Build(p Params) (*Descriptor, error) {
	if p.Profile == nil {
		return nil, errors.New("launch: profile is required")
	}
	if p.AdapterPath == "" {
		return nil, errors.New("launch: adapter path is required")
	}
	if p.ProgramPath == "" {
		return nil, errors.New("launch: program path is required")
	}

	cwd := p.WorkingDir
	if cwd == "" {
		cwd = path.Dir(p.ProgramPath)
	}
	console := p.Console
	if console == "" {
		console = ConsoleInternal
	}

	port := p.Profile.Port
	if port == 0 {
		port = connections.DefaultPort
	}

	return &Descriptor{
		Version: ProtocolVersion,
		Adapter: "ssh",
		AdapterArgs: []string{
			"-i", p.Profile.KeyPath,
			"-p", strconv.Itoa(port),
			"-o", "BatchMode=yes",
			p.Profile.User + "@" + p.Profile.Host,
			p.AdapterPath,
			"--interpreter=vscode",
		},
		Configurations: []Configuration{
			{
				Name:        fmt.Sprintf("Debug on %s", p.Profile.Name),
				Type:        "coreclr",
				Request:     "launch",
				Program:     p.ProgramPath,
				Args:        p.Args,
				Cwd:         cwd,
				StopAtEntry: p.StopAtEntry,
				Console:     console,
			},
		},
	}, nil
}

// Parse decodes a serialized descriptor.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing launch descriptor: %w", err)
	}
	return &d, nil
}

// Marshal encodes the descriptor with pretty formatting.
func (d *Descriptor) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling launch descriptor: %w", err)
	}
	return append(data, '\n'), nil
}

// WithFile writes the descriptor to a transient file, hands the path
// to fn, and deletes the file afterwards whether fn succeeds or not.
func (d *Descriptor) WithFile(fn func(path string) error) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "raspdbg-launch-*.json")
	if err != nil {
		return fmt.Errorf("creating launch descriptor file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing launch descriptor file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing launch descriptor file: %w", err)
	}

	return fn(name)
}

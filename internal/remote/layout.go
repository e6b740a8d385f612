package remote

import "path"

// MarkerFileName flags a fully committed runtime install. The staged
// install is renamed into place first and the marker written last, so
// a partial directory is never mistaken for a finished one.
const MarkerFileName = ".raspdbg-complete"

// Layout derives the deterministic remote paths for one user. Paths
// are per-user and per-program so concurrent programs for the same
// user do not collide.
type Layout struct {
	// Root is the remote root holding per-user directories.
	Root string
	// User is the remote account name.
	User string
}

// NewLayout builds a Layout, defaulting Root to /home.
func NewLayout(root, user string) Layout {
	if root == "" {
		root = "/home"
	}
	return Layout{Root: root, User: user}
}

// UserRoot is the per-user directory under the deploy root.
func (l Layout) UserRoot() string {
	return path.Join(l.Root, l.User)
}

// BaseDir holds the debug adapter and the deployed program trees.
func (l Layout) BaseDir() string {
	return path.Join(l.UserRoot(), "vsdbg")
}

// AdapterPath is the fixed debug adapter launcher path.
func (l Layout) AdapterPath() string {
	return path.Join(l.BaseDir(), "vsdbg")
}

// RuntimeRoot holds the installed runtime versions.
func (l Layout) RuntimeRoot() string {
	return path.Join(l.UserRoot(), "vsdbg-sdk")
}

// RuntimeDir is the install directory for one runtime version.
func (l Layout) RuntimeDir(version string) string {
	return path.Join(l.RuntimeRoot(), version)
}

// RuntimeStagingDir is the temporary path a runtime install is
// extracted into before the atomic rename.
func (l Layout) RuntimeStagingDir(version string) string {
	return path.Join(l.RuntimeRoot(), ".staging-"+version)
}

// RuntimeMarker is the completion marker inside an installed runtime.
func (l Layout) RuntimeMarker(version string) string {
	return path.Join(l.RuntimeDir(version), MarkerFileName)
}

// ProgramDir is the upload target for one program.
func (l Layout) ProgramDir(program string) string {
	return path.Join(l.BaseDir(), program)
}

// ProgramPath is the remote path of the program's main assembly.
func (l Layout) ProgramPath(program, assembly string) string {
	return path.Join(l.ProgramDir(program), assembly)
}

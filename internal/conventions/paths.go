package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default taskflow data directory name (relative to home).
	DefaultDataDir = ".taskflow"
	// DBFile is the SQLite file shared by all the tabs of a machine.
	DBFile = "taskflow.db"

	// DefaultProjectID is the project opened when none is given.
	DefaultProjectID = "demo"
	// DefaultServerURL is the relay server used by the tabs.
	DefaultServerURL = "http://localhost:3000"
	// DefaultListenAddress is the relay server listen address.
	DefaultListenAddress = ":3000"
)

// DBPath returns the path of the SQLite database inside a home directory.
func DBPath(homeDir string) string {
	return filepath.Join(homeDir, DefaultDataDir, DBFile)
}

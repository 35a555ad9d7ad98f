package workspace

import "errors"

var (
	// ErrRootRequired is returned when a manager is built without a root directory
	ErrRootRequired = errors.New("workspace root is required")

	// ErrInvalidAgentName is returned when a display name normalizes to an empty slug
	ErrInvalidAgentName = errors.New("invalid agent name")

	// ErrPathOutsideWorkspace is returned when a file name escapes the workspace root
	ErrPathOutsideWorkspace = errors.New("path is outside the workspace")

	// ErrSnapshotFailed wraps failures reported by a Snapshotter
	ErrSnapshotFailed = errors.New("snapshot failed")
)

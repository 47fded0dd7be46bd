package constants

import "os"

// File and directory permission constants used when the logger creates its
// output file.
const (
	// DirPermissions is the permission mode for created directories (rwxr-xr-x).
	DirPermissions os.FileMode = 0755

	// FilePermissions is the permission mode for created files (rw-r--r--).
	FilePermissions os.FileMode = 0644
)

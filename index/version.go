package index

import "fmt"

// Version is the index format version requested at creation time and
// recorded in every blob.
type Version int32

const (
	// MinimalVersion is the oldest version that can still be created or loaded.
	MinimalVersion Version = 1
	// CurrentVersion is the version written by this library.
	CurrentVersion Version = 2
)

// CheckVersion returns ErrUnsupportedVersion if v is outside
// [MinimalVersion, CurrentVersion].
func CheckVersion(v Version) error {
	if v < MinimalVersion || v > CurrentVersion {
		return fmt.Errorf("%w: %d (supported %d..%d)", ErrUnsupportedVersion, v, MinimalVersion, CurrentVersion)
	}
	return nil
}

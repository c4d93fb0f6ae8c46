package space

import (
	"golang.org/x/sys/unix"
)

const bytesPerGiB = 1 << 30

// AvailableGiB reports the free space at path in GiB as seen by an
// unprivileged process. The second return is false when the filesystem cannot
// be queried.
func AvailableGiB(path string) (float64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, false
	}
	free := float64(st.Bavail) * float64(st.Bsize)
	return free / bytesPerGiB, true
}

// BytesToGiB converts a byte count to GiB.
func BytesToGiB(n int64) float64 {
	return float64(n) / bytesPerGiB
}

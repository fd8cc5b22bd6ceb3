package walk

import (
	"golang.org/x/sys/unix"
)

// RootDeviceInfo is the device id and preferred I/O block size of the scan
// root, read once per walk with unix.Stat. The engine logs it at debug
// level as scan metadata; it does not feed the perf monitor's counters and
// does not gate or filter the walk itself — spec.md's Non-goals exclude
// allocation-on-disk accounting, so block size here is descriptive only.
type RootDeviceInfo struct {
	DeviceID  uint64
	BlockSize int64
}

// statRootDevice reads root's device id and block size. A failure here
// (e.g. a platform without unix.Stat_t, or a race where root disappears
// between the orchestrator's stat and the walker starting) is non-fatal:
// the zero value is used and the walk proceeds exactly as before.
func statRootDevice(root string) (RootDeviceInfo, bool) {
	var st unix.Stat_t
	if err := unix.Stat(root, &st); err != nil {
		return RootDeviceInfo{}, false
	}
	return RootDeviceInfo{DeviceID: uint64(st.Dev), BlockSize: int64(st.Blksize)}, true
}

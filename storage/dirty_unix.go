//go:build unix

package storage

import "golang.org/x/sys/unix"

// syncDirty msyncs every coalesced dirty range in data back to the backing
// file. f is unused on unix since the mapping is MAP_SHARED and msync
// operates directly on the mapped bytes.
func syncDirty(f fileHandle, data []byte, t *dirtyTracker) error {
	for _, r := range t.coalesce() {
		start, end := int(r.Off), int(r.Off+r.Len)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			continue
		}
		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	t.reset()
	return nil
}

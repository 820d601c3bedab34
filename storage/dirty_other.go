//go:build !unix

package storage

// syncDirty writes every coalesced dirty range in data back to f, since
// these platforms have no mmap wired up (see pagefile_other.go) and the
// in-memory mirror must be pushed to disk explicitly.
func syncDirty(f fileHandle, data []byte, t *dirtyTracker) error {
	for _, r := range t.coalesce() {
		start, end := int(r.Off), int(r.Off+r.Len)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			continue
		}
		if _, err := f.WriteAt(data[start:end], r.Off); err != nil {
			return err
		}
	}
	t.reset()
	return nil
}

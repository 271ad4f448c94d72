package ports

// DiskSpace reports free storage for a path.
type DiskSpace interface {
	// Available returns the bytes available to an unprivileged user on the
	// volume holding path.
	Available(path string) (uint64, error)
}

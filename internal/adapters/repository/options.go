package repository

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCapacity sets how many recent events the ring keeps.
func WithCapacity(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithoutSync skips fsync after each append. Only for tests and scratch logs.
func WithoutSync() FileOption {
	return func(s *FileStore) {
		s.sync = false
	}
}

package mocks

import (
	"sync"

	"github.com/user/multicam/pkg/ports"
)

// DiskSpace is a mock implementation of ports.DiskSpace.
type DiskSpace struct {
	AvailableFunc func(path string) (uint64, error)

	mu    sync.Mutex
	Calls int
}

func (m *DiskSpace) Available(path string) (uint64, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.AvailableFunc != nil {
		return m.AvailableFunc(path)
	}
	return 100 << 30, nil
}

// CallCount returns how many queries were made.
func (m *DiskSpace) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ ports.DiskSpace = (*DiskSpace)(nil)

package artifacts

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"xdt-go/internal/xdt"
)

// MemoryStore keeps artifacts in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = data
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.data[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", xdt.ErrArtifactNotFound, name)
	}
	_, err := w.Write(data)
	return err
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[name]
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *MemoryStore) Location(name string) string {
	return "memory://" + name
}

// Names lists stored artifacts in lexical order.
func (m *MemoryStore) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ xdt.ArtifactStore = (*MemoryStore)(nil)

package metadata

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"lukechampine.com/blake3"
)

// MemoryPinner keeps pinned content in memory under a blake3 content id.
// It backs offline runs and tests.
type MemoryPinner struct {
	mu      sync.RWMutex
	content map[string][]byte
	names   map[string]string
}

// NewMemoryPinner constructs an empty pinner.
func NewMemoryPinner() *MemoryPinner {
	return &MemoryPinner{content: make(map[string][]byte), names: make(map[string]string)}
}

// PinFile implements Pinner.
func (m *MemoryPinner) PinFile(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("metadata: read %s: %w", name, err)
	}
	return m.store(name, data), nil
}

// PinJSON implements Pinner.
func (m *MemoryPinner) PinJSON(_ context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("metadata: encode %s: %w", name, err)
	}
	return m.store(name, data), nil
}

// Get returns the content pinned under cid.
func (m *MemoryPinner) Get(cid string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[cid]
	if !ok {
		return nil, ErrNotPinned
	}
	return append([]byte(nil), data...), nil
}

// Name returns the name content was pinned with.
func (m *MemoryPinner) Name(cid string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[cid]
}

// Len reports how many distinct documents are pinned.
func (m *MemoryPinner) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

func (m *MemoryPinner) store(name string, data []byte) string {
	sum := blake3.Sum256(data)
	cid := "b3" + hex.EncodeToString(sum[:])
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[cid] = append([]byte(nil), data...)
	m.names[cid] = name
	return cid
}

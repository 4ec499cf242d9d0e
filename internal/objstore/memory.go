package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Memory is an in-process object store for tests and offline runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	// UploadErr, when set, fails every Upload.
	UploadErr error
	// Downloads counts successful downloads.
	Downloads int
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores data under key.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Object returns the bytes stored under key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Download(_ context.Context, key, localPath string) error {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: download %s: %w", internalerr.ErrTransfer, key, ErrNoSuchKey)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return err
	}
	m.mu.Lock()
	m.Downloads++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Upload(_ context.Context, localPath, remoteKey string) error {
	if m.UploadErr != nil {
		return fmt.Errorf("%w: upload %s: %w", internalerr.ErrTransfer, remoteKey, m.UploadErr)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.Put(remoteKey, data)
	return nil
}

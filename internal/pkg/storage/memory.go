package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory is an in-process Backend. The Fail hooks let callers inject transport errors.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string]memoryObject
	publicURL string

	FailPut    func(path string) error
	FailDelete func(path string) error
	FailExists func(path string) error

	Now func() time.Time
}

// NewMemory creates an empty in-memory store with URLs under publicURL.
func NewMemory(publicURL string) *Memory {
	return &Memory{
		objects:   make(map[string]memoryObject),
		publicURL: publicURL,
		Now:       time.Now,
	}
}

func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	if m.FailExists != nil {
		if err := m.FailExists(p); err != nil {
			return false, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[cleanKey(p)]
	return ok, nil
}

func (m *Memory) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if m.FailPut != nil {
		if err := m.FailPut(p); err != nil {
			return err
		}
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[cleanKey(p)] = memoryObject{data: buf, contentType: contentType, modified: m.Now()}
	return nil
}

func (m *Memory) Get(ctx context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[cleanKey(p)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

func (m *Memory) Delete(ctx context.Context, p string) error {
	if m.FailDelete != nil {
		if err := m.FailDelete(p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, cleanKey(p))
	return nil
}

func (m *Memory) URL(p string) string {
	return joinURL(m.publicURL, cleanKey(p))
}

func (m *Memory) Size(ctx context.Context, p string) (int64, error) {
	obj, err := m.object(p)
	if err != nil {
		return 0, err
	}
	return int64(len(obj.data)), nil
}

func (m *Memory) LastModified(ctx context.Context, p string) (time.Time, error) {
	obj, err := m.object(p)
	if err != nil {
		return time.Time{}, err
	}
	return obj.modified, nil
}

// ContentType returns the content type an object was stored with.
func (m *Memory) ContentType(p string) string {
	obj, err := m.object(p)
	if err != nil {
		return ""
	}
	return obj.contentType
}

// Keys returns all stored keys in lexical order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) object(p string) (memoryObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[cleanKey(p)]
	if !ok {
		return memoryObject{}, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return obj, nil
}

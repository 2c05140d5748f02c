package storage

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// healthDir holds the object written by health checks. Public routes never serve it.
const healthDir = ".health"

const checkPath = healthDir + "/check.txt"

// IsInternalPath reports whether a storage-relative (possibly escaped) path lies under healthDir
func IsInternalPath(p string) bool {
	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return true
	}
	clean := strings.TrimPrefix(path.Clean("/"+unescaped), "/")
	return clean == healthDir || strings.HasPrefix(clean, healthDir+"/")
}

// Health is the latest check result of one backend
type Health struct {
	Name      string        `json:"name"`
	Healthy   bool          `json:"healthy"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Monitor periodically writes, reads and deletes a check object on each backend
type Monitor struct {
	backends map[string]Backend
	interval time.Duration

	mu      sync.RWMutex
	results map[string]Health
	stopCh  chan struct{}
}

// NewMonitor creates a monitor for the named backends. Nil backends are ignored.
func NewMonitor(interval time.Duration, backends map[string]Backend) *Monitor {
	named := make(map[string]Backend, len(backends))
	for name, b := range backends {
		if b != nil {
			named[name] = b
		}
	}
	return &Monitor{
		backends: named,
		interval: interval,
		results:  make(map[string]Health),
	}
}

// Start runs one check immediately and then one per interval until Stop
func (m *Monitor) Start() {
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		log.Infof("[StorageHealth] Monitor started (interval: %s)", m.interval)

		m.CheckOnce(context.Background())

		for {
			select {
			case <-stopCh:
				log.Info("[StorageHealth] Monitor stopped")
				return
			case <-ticker.C:
				m.CheckOnce(context.Background())
			}
		}
	}()
}

// Stop stops the heartbeat
func (m *Monitor) Stop() {
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

// CheckOnce checks every backend and records the results
func (m *Monitor) CheckOnce(ctx context.Context) {
	for name, b := range m.backends {
		h := check(ctx, name, b)
		if !h.Healthy {
			log.Errorf("[StorageHealth] Backend %s unhealthy: %s", name, h.Error)
		}
		m.mu.Lock()
		m.results[name] = h
		m.mu.Unlock()
	}
}

// Results returns a copy of the latest check results
func (m *Monitor) Results() map[string]Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Health, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}

func check(ctx context.Context, name string, b Backend) Health {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	h := Health{Name: name, CheckedAt: start}

	payload := []byte(start.UTC().Format(time.RFC3339Nano))
	if err := b.Put(ctx, checkPath, payload, "text/plain"); err != nil {
		h.Error = err.Error()
		return h
	}
	if _, err := b.Get(ctx, checkPath); err != nil {
		h.Error = err.Error()
		return h
	}
	if err := b.Delete(ctx, checkPath); err != nil {
		h.Error = err.Error()
		return h
	}

	h.Healthy = true
	h.Latency = time.Since(start)
	return h
}

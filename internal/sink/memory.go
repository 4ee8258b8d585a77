// Package sink holds the containers the energy goal widget is written into:
// an in-memory set of containers, a static HTML document edited in place,
// and a page loaded in headless Chrome.
package sink

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/jgoulah/energygoal/internal/widget"
)

// Memory keeps container contents in a map. Writes to a container are
// last-writer-wins.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]template.HTML
}

// NewMemory creates a sink with the given empty containers
func NewMemory(ids ...string) *Memory {
	m := &Memory{containers: make(map[string]template.HTML, len(ids))}
	for _, id := range ids {
		m.containers[id] = ""
	}
	return m
}

// Replace sets the content of an existing container
func (m *Memory) Replace(ctx context.Context, id string, content template.HTML) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.containers[id]; !ok {
		return fmt.Errorf("container %q: %w", id, widget.ErrSinkNotFound)
	}
	m.containers[id] = content
	return nil
}

// Content returns a container's content and whether the container exists
func (m *Memory) Content(id string) (template.HTML, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[id]
	return c, ok
}

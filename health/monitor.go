package health

import (
	"slices"
	"sync"
	"time"
)

// Source reports a component's current health on demand.
type Source interface {
	Health() Status
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Status

// Health implements Source.
func (f SourceFunc) Health() Status { return f() }

// Monitor tracks health of multiple components in a thread-safe manner.
// Components either push statuses with Update or are polled through a
// registered Source at aggregation time.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	sources  map[string]Source
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		sources:  make(map[string]Source),
	}
}

// Update stores the health status for a named component, replacing any
// Source registered under the same name.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
	delete(m.sources, name)
}

// Watch polls src for name on every Get and AggregateHealth.
func (m *Monitor) Watch(name string, src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = src
	delete(m.statuses, name)
}

// UpdateHealthy is a convenience method to update a component as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy is a convenience method to update a component as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded is a convenience method to update a component as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	src, watched := m.sources[name]
	status, exists := m.statuses[name]
	m.mu.RUnlock()

	if watched {
		status = src.Health()
		status.Component = name
		return status, true
	}
	return status, exists
}

// Remove removes a component from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.sources, name)
}

// AggregateHealth returns an aggregated health status with one sub-status
// per component, ordered by name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	names := m.ListComponents()
	subStatuses := make([]Status, 0, len(names))
	for _, name := range names {
		if status, ok := m.Get(name); ok {
			subStatuses = append(subStatuses, status)
		}
	}
	return Aggregate(systemName, subStatuses)
}

// ListComponents returns the sorted names of all monitored components
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses)+len(m.sources))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of components being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses) + len(m.sources)
}

package api

import (
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// Response is the envelope every admin endpoint returns.
type Response[T any] struct {
	Success   bool      `json:"success"`
	Data      *T        `json:"data,omitempty"`
	Error     *string   `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK wraps data in a successful response.
func OK[T any](data T) Response[T] {
	return Response[T]{
		Success:   true,
		Data:      &data,
		Timestamp: time.Now().UTC(),
	}
}

// Fail builds an error response carrying message.
func Fail[T any](message string) Response[T] {
	return Response[T]{
		Success:   false,
		Error:     &message,
		Timestamp: time.Now().UTC(),
	}
}

// HealthResponse reports the overall state plus one entry per component.
type HealthResponse struct {
	Status     string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Healthy    bool              `json:"healthy"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Components []ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth is the health of one pool or collaborator.
type ComponentHealth struct {
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	Healthy           bool     `json:"healthy"`
	Message           string   `json:"message,omitempty"`
	UptimeSeconds     *float64 `json:"uptime_seconds,omitempty"`
	ErrorCount        int      `json:"error_count,omitempty"`
	MessagesProcessed int64    `json:"messages_processed,omitempty"`
}

// PluginInfo describes one registered worker.
type PluginInfo struct {
	Name       string `json:"name"`
	Pool       string `json:"pool"`
	PoolID     string `json:"pool_id"`
	WorkerType string `json:"worker_type"`
	Rule       string `json:"rule"`
	Priority   uint32 `json:"priority"`
}

// AdapterInfo describes an ingress/egress collaborator such as the NATS bridge.
type AdapterInfo struct {
	Name      string   `json:"name"`
	Protocol  string   `json:"protocol"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Codec     string   `json:"codec,omitempty"`
	Connected bool     `json:"connected"`
	Subjects  []string `json:"subjects,omitempty"`
}

// ReloadRequest asks for one item to be reloaded from path.
type ReloadRequest struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Force bool   `json:"force,omitempty"`
}

// Validate reports missing fields as Config errors.
func (r ReloadRequest) Validate() error {
	if r.Name == "" {
		return errors.MissingRequired("ReloadRequest", "Validate", "name")
	}
	if r.Path == "" {
		return errors.MissingRequired("ReloadRequest", "Validate", "path")
	}
	return nil
}

// ReloadResponse reports one reload attempt.
type ReloadResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	Success         bool      `json:"success"`
	Hash            *string   `json:"hash,omitempty"`
	Error           *string   `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	ModifiedTime    time.Time `json:"modified_time"`
	PreviousVersion *string   `json:"previous_version,omitempty"`
}

// ConfigResponse exposes the core configuration keys.
type ConfigResponse struct {
	MaxHotReloadEntries int `json:"max_hot_reload_entries"`
	LRUDefaultCapacity  int `json:"lru_default_capacity"`
}

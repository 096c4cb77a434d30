package api

import (
	"github.com/Full-finger/Loquat-sub001/config"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/hotreload"
	"github.com/Full-finger/Loquat-sub001/pipeline"
)

// HealthFromStatus flattens a health tree one level deep: the root becomes
// the overall status and each sub-status a component.
func HealthFromStatus(s health.Status, version string) HealthResponse {
	resp := HealthResponse{
		Status:  s.Status,
		Healthy: s.IsHealthy(),
		Message: s.Message,
		Version: version,
	}

	if len(s.SubStatuses) > 0 {
		resp.Components = make([]ComponentHealth, 0, len(s.SubStatuses))
	}
	for _, sub := range s.SubStatuses {
		c := ComponentHealth{
			Name:    sub.Component,
			Status:  sub.Status,
			Healthy: sub.IsHealthy(),
			Message: sub.Message,
		}
		if m := sub.Metrics; m != nil {
			uptime := m.Uptime.Seconds()
			c.UptimeSeconds = &uptime
			c.ErrorCount = m.ErrorCount
			c.MessagesProcessed = m.MessagesProcessed
		}
		resp.Components = append(resp.Components, c)
	}
	return resp
}

// ReloadFromEntry converts a history entry for item name.
func ReloadFromEntry(name string, e hotreload.Entry) ReloadResponse {
	resp := ReloadResponse{
		ID:           e.ID,
		Name:         name,
		Path:         e.Path,
		Success:      e.Success,
		Hash:         e.Hash,
		Error:        e.Error,
		Timestamp:    e.Timestamp,
		ModifiedTime: e.ModifiedTime,
	}
	if e.PreviousData != nil {
		v := e.PreviousData.Version
		resp.PreviousVersion = &v
	}
	return resp
}

// ConfigFromCore converts the core configuration keys.
func ConfigFromCore(c config.CoreConfig) ConfigResponse {
	return ConfigResponse{
		MaxHotReloadEntries: c.MaxHotReloadEntries,
		LRUDefaultCapacity:  c.LRUDefaultCapacity,
	}
}

// PluginsFromPipeline lists every registered worker in stage order, then
// priority order within a stage.
func PluginsFromPipeline(p *pipeline.Pipeline) []PluginInfo {
	var out []PluginInfo
	for _, stage := range p.Pools() {
		for _, w := range stage.Workers() {
			out = append(out, PluginInfo{
				Name:       w.Name,
				Pool:       stage.Type().String(),
				PoolID:     stage.ID(),
				WorkerType: w.Type.String(),
				Rule:       w.Rule,
				Priority:   w.Priority,
			})
		}
	}
	return out
}

// Package health provides three-state health reporting (healthy, degraded,
// unhealthy) for the pipeline and its collaborators.
//
// A Status may carry sub-statuses; Aggregate folds them with the rule
// "worst wins". The pipeline reports one sub-status per pool and is degraded
// once any pool has dropped a package for re-matching its producer.
//
// Monitor collects statuses from several components, either pushed with
// Update or pulled from a Source at aggregation time:
//
//	mon := health.NewMonitor()
//	mon.Watch("pipeline", health.SourceFunc(pipe.Health))
//	mon.UpdateHealthy("bridge", "subscribed")
//	overall := mon.AggregateHealth("loquat")
//
// FromError sanitizes error text (URLs, paths, addresses, credentials) before
// it becomes a status message, since health is served over HTTP.
package health

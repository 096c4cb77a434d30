// Package api defines the JSON contract of the Loquat admin surface.
//
// Every endpoint answers with a Response envelope:
//
//	{"success": true, "data": {...}, "timestamp": "2025-01-01T00:00:00Z"}
//	{"success": false, "error": "worker \"echo\" not found", "timestamp": "..."}
//
// The converters turn core types (health statuses, reload history entries,
// configuration and pipeline registrations) into their wire form. The core
// packages never import api.
package api

package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Full-finger/Loquat-sub001/api"
	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/hotreload"
)

// maxRequestBody bounds admin request bodies.
const maxRequestBody = 64 * 1024

// newAdminHandler serves the read-mostly admin routes under /api/.
func newAdminHandler(a *app) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		resp := api.HealthFromStatus(a.monitor.AggregateHealth(appName), Version)
		code := http.StatusOK
		if !resp.Healthy && resp.Status != health.StateDegraded {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, api.OK(resp))
	})

	mux.HandleFunc("GET /api/plugins", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, api.OK(api.PluginsFromPipeline(a.pipeline)))
	})

	mux.HandleFunc("GET /api/adapters", func(w http.ResponseWriter, _ *http.Request) {
		adapters := []api.AdapterInfo{}
		if a.bridge != nil {
			adapters = append(adapters, a.bridge.Info())
		}
		writeJSON(w, http.StatusOK, api.OK(adapters))
	})

	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, api.OK(api.ConfigFromCore(a.cfg.Get().Core)))
	})

	mux.HandleFunc("GET /api/reload/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		entries := a.reloader.History().History(name)
		out := make([]api.ReloadResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, api.ReloadFromEntry(name, e))
		}
		writeJSON(w, http.StatusOK, api.OK(out))
	})

	mux.HandleFunc("POST /api/reload", func(w http.ResponseWriter, r *http.Request) {
		var req api.ReloadRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, api.Fail[api.ReloadResponse]("invalid request body"))
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, api.Fail[api.ReloadResponse](err.Error()))
			return
		}
		if req.Name != configItem || req.Path != a.configPath {
			writeJSON(w, http.StatusNotFound, api.Fail[api.ReloadResponse]("unknown reload target"))
			return
		}

		if !a.reloadLimiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, api.Fail[api.ReloadResponse]("reload rate limit exceeded"))
			return
		}

		entry, err := a.reload(r.Context(), req)
		if err != nil && entry.ID == "" {
			writeJSON(w, statusFor(err), api.Fail[api.ReloadResponse](err.Error()))
			return
		}
		code := http.StatusOK
		if !entry.Success {
			code = http.StatusUnprocessableEntity
		}
		writeJSON(w, code, api.OK(api.ReloadFromEntry(req.Name, entry)))
	})

	return mux
}

// reload forces a reload or, without Force, reloads only a changed file and
// reports the latest recorded attempt otherwise.
func (a *app) reload(ctx context.Context, req api.ReloadRequest) (hotreload.Entry, error) {
	if req.Force {
		return a.reloader.Reload(ctx, req.Name, req.Path, a.loadConfig)
	}

	entry, attempted, err := a.reloader.ReloadIfChanged(ctx, req.Name, req.Path, a.loadConfig)
	if attempted || err != nil {
		return entry, err
	}
	if last, ok := a.reloader.History().Last(req.Name); ok {
		return last, nil
	}
	return hotreload.Entry{}, errors.ExecutionFailed("admin", "reload", "no reload recorded for "+req.Name)
}

// statusFor maps an error class to a response code. Transient failures such
// as an unreadable file are worth retrying, so they answer 503.
func statusFor(err error) int {
	switch errors.Classify(err) {
	case errors.ErrorInvalid:
		return http.StatusBadRequest
	case errors.ErrorFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package serve

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/ratelimit"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

type handlers struct {
	deps Deps
}

func (h *handlers) handleMetadata(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathTokenID(w, r)
	if !ok {
		return
	}

	view, err := h.deps.Metadata.Get(r.Context(), tokenID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}

	status := http.StatusOK
	if view.Loading {
		// Cold item: a background refresh is on its way, tell the client
		// to come back.
		status = http.StatusAccepted
	}
	writeJSON(w, status, view)
}

func (h *handlers) handleCollection(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page parameter")
			return
		}
		page = parsed
	}

	result, err := h.deps.Collection.GetPage(r.Context(), page)
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrPageOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "collection unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathTokenID(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Refresher.Refresh(r.Context(), tokenID, refresh.SourceManual)
	if err != nil {
		switch domain.FetchKind(err) {
		case domain.FetchNotFound:
			writeError(w, http.StatusNotFound, "token does not exist")
		case domain.FetchDecode:
			writeError(w, http.StatusUnprocessableEntity, "metadata could not be decoded")
		default:
			writeError(w, http.StatusBadGateway, "chain temporarily unavailable")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokenId": result.TokenID,
		"changed": result.Changed,
		"hash":    result.Hash,
	})
}

func (h *handlers) handleRefreshBatch(w http.ResponseWriter, r *http.Request) {
	if h.deps.CronSecret != "" {
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(h.deps.CronSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid cron secret")
			return
		}
	}

	summary, err := h.deps.Scheduler.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.MaintenanceEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	outcome, err := h.deps.Invalidator.Handle(r.Context(), &ev)
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	decision, err := h.deps.Limiter.Status(r.Context(), identity)
	if err != nil {
		if errors.Is(err, ratelimit.ErrBadIdentity) {
			writeError(w, http.StatusBadRequest, "malformed identity")
			return
		}
		writeError(w, http.StatusInternalServerError, "rate limit status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathTokenID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	tokenID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return 0, false
	}
	return tokenID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

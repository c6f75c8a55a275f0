package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/cespare/xxhash/v2"

	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/core/service"
)

type HTTPHandler struct {
	catalog *service.CatalogService
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

type HealthHTTPResponse struct {
	Status string               `json:"status"`
	Cache  service.CacheMetrics `json:"cache"`
}

func NewHTTPHandler(catalog *service.CatalogService) *HTTPHandler {
	return &HTTPHandler{catalog: catalog}
}

// Register mounts the catalog routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("GET /api/stats", h.Stats)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page, err := intParam(params.Get("page"), 1)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid page"})
		return
	}
	limit, err := intParam(params.Get("limit"), domain.DefaultPageLimit)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid limit"})
		return
	}

	result, err := h.catalog.ListItems(r.Context(), domain.ItemQuery{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(params.Get("q")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid item id"})
		return
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, item)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, stats)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthHTTPResponse{
		Status: "ok",
		Cache:  h.catalog.CacheMetrics(),
	})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		status = http.StatusNotFound
		message = "item not found"
	case errors.Is(err, domain.ErrStoreNotFound):
		status = http.StatusServiceUnavailable
		message = "item store unavailable"
	case errors.Is(err, domain.ErrMalformedData):
		message = "item store is malformed"
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("request_id", RequestID(r.Context())).Error("request failed")
	}

	writeJSON(w, r, status, ErrorHTTPResponse{Error: message})
}

// writeJSON encodes data with a content ETag and answers conditional GETs
// with 304.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).Error("encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if status == http.StatusOK {
		etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

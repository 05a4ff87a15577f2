package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightx/insightx/internal/api/middleware"
	"github.com/insightx/insightx/internal/engine"
	"github.com/insightx/insightx/internal/nlp"
)

// QueryHandler handles the conversational query endpoint.
type QueryHandler struct {
	engine *engine.Service
	log    zerolog.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(eng *engine.Service, log zerolog.Logger) *QueryHandler {
	return &QueryHandler{engine: eng, log: log}
}

// HandleQuery handles POST /api/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string `json:"query"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.engine.Analyze(r.Context(), req.SessionID, req.Query)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyQuery) {
			middleware.WriteError(w, http.StatusBadRequest, "Query is required")
			return
		}
		h.log.Error().Err(err).Msg("Failed to analyze query")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to analyze query")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// MetaHandler serves the static capability endpoints.
type MetaHandler struct {
	dict *nlp.Dictionary
	log  zerolog.Logger
}

// NewMetaHandler creates a meta handler over the entity dictionary.
func NewMetaHandler(dict *nlp.Dictionary, log zerolog.Logger) *MetaHandler {
	return &MetaHandler{dict: dict, log: log}
}

// HandleHealth handles GET /health
func (h *MetaHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// HandleSupportedEntities handles GET /api/supported-entities
func (h *MetaHandler) HandleSupportedEntities(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{
		"merchant_categories": h.dict.Categories,
		"states":              h.dict.States,
		"banks":               h.dict.Banks,
		"age_groups":          h.dict.AgeGroups,
		"device_types":        h.dict.Devices,
		"network_types":       h.dict.Networks,
		"transaction_types":   h.dict.TransactionTypes,
		"statuses":            h.dict.Statuses,
	})
}

var exampleQueries = []string{
	"What is the average transaction amount for Food?",
	"Compare iOS and Android transactions",
	"Show me spending by age group",
	"Top 3 fraud categories in Delhi",
	"Fraud rate by banks",
	"Total amount by sender state on weekends",
	"Which network has the most failed transactions?",
}

// HandleExampleQueries handles GET /api/example-queries
func (h *MetaHandler) HandleExampleQueries(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"examples": exampleQueries,
		"count":    len(exampleQueries),
	})
}

// SessionsHandler handles session lifecycle endpoints.
type SessionsHandler struct {
	engine *engine.Service
	log    zerolog.Logger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(eng *engine.Service, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{engine: eng, log: log}
}

// GetHistory handles GET /api/sessions/{id}/history
func (h *SessionsHandler) GetHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	history, ok := h.engine.Sessions().History(sessionID)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":        sessionID,
		"history":           history,
		"count":             len(history),
		"resolved_entities": h.engine.Sessions().ResolvedEntities(sessionID),
	})
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !h.engine.Sessions().Delete(sessionID) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	h.log.Info().Str("session_id", sessionID).Msg("Session deleted")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "deleted",
	})
}

// ResetSession handles POST /api/sessions/{id}/reset
func (h *SessionsHandler) ResetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !h.engine.Sessions().Reset(sessionID) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "reset",
	})
}

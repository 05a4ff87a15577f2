package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightx/insightx/internal/analysis"
	"github.com/insightx/insightx/internal/conversation"
	"github.com/insightx/insightx/internal/dataset/memory"
	"github.com/insightx/insightx/internal/domain"
	"github.com/insightx/insightx/internal/engine"
	"github.com/insightx/insightx/internal/nlp"
)

func testEngine() *engine.Service {
	rows := []domain.Transaction{
		{ID: "t1", MerchantCategory: "Food", Amount: 100, Status: "success", SenderState: "Delhi", SenderAgeGroup: "18-25", SenderBank: "HDFC", DeviceType: "iOS", NetworkType: "WiFi"},
		{ID: "t2", MerchantCategory: "Travel", Amount: 500, Status: "failed", SenderState: "Karnataka", SenderAgeGroup: "25-35", SenderBank: "SBI", DeviceType: "Android", NetworkType: "4G", FraudFlag: true},
	}
	return engine.NewService(
		zerolog.Nop(),
		nlp.NewDictionary(),
		conversation.NewStore(time.Hour),
		analysis.NewBuilder(memory.NewStore(rows)),
		nil,
	)
}

func TestQueryHandler_HandleQuery(t *testing.T) {
	h := NewQueryHandler(testEngine(), zerolog.Nop())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid query",
			body:       `{"query": "average transaction amount"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty query",
			body:       `{"query": "  "}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{"query": `,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleQuery(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestQueryHandler_ResponseShape(t *testing.T) {
	h := NewQueryHandler(testEngine(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "What is the average transaction amount for Food?"}`))
	w := httptest.NewRecorder()
	h.HandleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		SessionID  string             `json:"session_id"`
		Intent     string             `json:"intent"`
		Confidence float64            `json:"confidence"`
		Entities   map[string]any     `json:"entities"`
		Result     json.RawMessage    `json:"result"`
		Clarify    *map[string]any    `json:"clarification"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("response missing session_id")
	}
	if resp.Intent != string(nlp.IntentDescriptive) {
		t.Errorf("intent = %q, want descriptive", resp.Intent)
	}
	if resp.Confidence < 0.7 || resp.Confidence > 0.95 {
		t.Errorf("confidence = %v, want within [0.7, 0.95]", resp.Confidence)
	}
	if len(resp.Result) == 0 {
		t.Error("response missing result")
	}
	if resp.Clarify != nil {
		t.Error("unambiguous query returned a clarification")
	}
}

func TestQueryHandler_ClarificationResponse(t *testing.T) {
	h := NewQueryHandler(testEngine(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "fraud rate by banks"}`))
	w := httptest.NewRecorder()
	h.HandleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Clarification *struct {
			NeedsClarification bool     `json:"needs_clarification"`
			Type               string   `json:"clarification_type"`
			Options            []string `json:"options"`
		} `json:"clarification"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Clarification == nil || !resp.Clarification.NeedsClarification {
		t.Fatal("ambiguous query did not return a clarification")
	}
	if resp.Clarification.Type != "bank_direction" {
		t.Errorf("clarification_type = %q, want bank_direction", resp.Clarification.Type)
	}
	if len(resp.Clarification.Options) != 2 {
		t.Errorf("options = %v, want two directions", resp.Clarification.Options)
	}
	if len(resp.Result) != 0 {
		t.Error("clarification response also carried a result")
	}
}

func TestMetaHandler_HandleHealth(t *testing.T) {
	h := NewMetaHandler(nlp.NewDictionary(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body is not valid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestMetaHandler_HandleSupportedEntities(t *testing.T) {
	dict := nlp.NewDictionary()
	h := NewMetaHandler(dict, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/supported-entities", nil)
	w := httptest.NewRecorder()
	h.HandleSupportedEntities(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(body["merchant_categories"]) != len(dict.Categories) {
		t.Errorf("merchant_categories = %d entries, want %d", len(body["merchant_categories"]), len(dict.Categories))
	}
	if len(body["states"]) != len(dict.States) {
		t.Errorf("states = %d entries, want %d", len(body["states"]), len(dict.States))
	}
	for _, field := range []string{"banks", "age_groups", "device_types", "network_types", "transaction_types", "statuses"} {
		if len(body[field]) == 0 {
			t.Errorf("field %q is empty", field)
		}
	}
}

func TestMetaHandler_HandleExampleQueries(t *testing.T) {
	h := NewMetaHandler(nlp.NewDictionary(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/example-queries", nil)
	w := httptest.NewRecorder()
	h.HandleExampleQueries(w, req)

	var body struct {
		Examples []string `json:"examples"`
		Count    int      `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Count == 0 || body.Count != len(body.Examples) {
		t.Errorf("count = %d with %d examples", body.Count, len(body.Examples))
	}
}

func TestSessionsHandler_Lifecycle(t *testing.T) {
	eng := testEngine()
	h := NewSessionsHandler(eng, zerolog.Nop())

	// Seed a session with one turn.
	resp, err := eng.Analyze(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "", "average transaction amount")
	if err != nil {
		t.Fatalf("seeding turn failed: %v", err)
	}
	id := resp.SessionID

	w := httptest.NewRecorder()
	h.GetHistory(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/history", nil), id)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var history struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("history body is not valid JSON: %v", err)
	}
	if history.Count != 1 {
		t.Errorf("history count = %d, want 1", history.Count)
	}

	w = httptest.NewRecorder()
	h.ResetSession(w, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reset", nil), id)
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.DeleteSession(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil), id)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	// Everything 404s once the session is gone.
	for name, call := range map[string]func(http.ResponseWriter, *http.Request, string){
		"history": h.GetHistory,
		"reset":   h.ResetSession,
		"delete":  h.DeleteSession,
	} {
		w = httptest.NewRecorder()
		call(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil), id)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s on deleted session = %d, want 404", name, w.Code)
		}
	}
}

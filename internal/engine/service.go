// Package engine orchestrates one conversational turn: classify, extract,
// clarify or resolve, merge session context, execute the plan and attach an
// explanation.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/insightx/insightx/internal/analysis"
	"github.com/insightx/insightx/internal/conversation"
	"github.com/insightx/insightx/internal/nlp"
)

// ErrEmptyQuery is returned for blank input.
var ErrEmptyQuery = errors.New("query is empty")

// Confidence bounds for the heuristic score: base plus a small bonus per
// extracted entity, capped.
const (
	confidenceBase    = 0.7
	confidencePerKey  = 0.05
	confidenceCeiling = 0.95
)

// Explainer produces the human-readable explanation attached to a result.
// Implementations must not fail the turn; on trouble they fall back to a
// template.
type Explainer interface {
	Explain(ctx context.Context, query string, intent nlp.Intent, entities nlp.EntitySet, result analysis.Result) string
}

// Clarify is the clarification payload of a response.
type Clarify struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Type               string   `json:"clarification_type"`
	Options            []string `json:"options"`
	Question           string   `json:"question"`
}

// Response is the outcome of one conversational turn. Exactly one of Result
// or Clarification is set.
type Response struct {
	SessionID     string          `json:"session_id"`
	Query         string          `json:"query"`
	Intent        nlp.Intent      `json:"intent"`
	Confidence    float64         `json:"confidence"`
	Entities      nlp.EntitySet   `json:"entities"`
	Result        analysis.Result `json:"result,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Clarification *Clarify        `json:"clarification,omitempty"`
}

// Service is the conversational analytics engine.
type Service struct {
	log        zerolog.Logger
	classifier *nlp.Classifier
	extractor  *nlp.Extractor
	sessions   *conversation.Store
	builder    *analysis.Builder
	explainer  Explainer
}

// NewService wires the engine. explainer may be nil; responses then carry
// the result summary as explanation.
func NewService(log zerolog.Logger, dict *nlp.Dictionary, sessions *conversation.Store, builder *analysis.Builder, explainer Explainer) *Service {
	return &Service{
		log:        log,
		classifier: nlp.NewClassifier(),
		extractor:  nlp.NewExtractor(dict),
		sessions:   sessions,
		builder:    builder,
		explainer:  explainer,
	}
}

// Analyze processes one query turn. An unknown or empty session id starts a
// new session.
func (s *Service) Analyze(ctx context.Context, sessionID, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		sess = s.sessions.Create()
	}

	if sess.Pending != nil {
		if direction := pendingAnswer(sess.Pending, query); direction != "" {
			return s.resumePending(ctx, sess, query, direction)
		}
		// No direction cue: process as a fresh query, the pending question
		// stays open.
		s.log.Debug().Str("session_id", sess.ID).Msg("pending clarification unanswered")
	}

	intent := s.classifier.Classify(query)
	entities := s.extractor.Extract(query)

	s.log.Info().
		Str("session_id", sess.ID).
		Str("intent", string(intent)).
		Int("entities", len(entities)).
		Msg("query classified")

	if c := detectAmbiguity(query, intent, entities); c != nil {
		s.sessions.SetPending(sess.ID, c)
		return clarificationResponse(sess.ID, query, entities, c), nil
	}

	merged := s.sessions.MergeEntities(sess.ID, entities)
	intent = s.adjustIntent(sess, intent, entities, merged)

	return s.execute(ctx, sess.ID, query, intent, merged)
}

// pendingAnswer extracts the answered direction for the session's pending
// clarification. Single-option restated clarifications also accept a plain
// affirmative.
func pendingAnswer(pending *conversation.Clarification, query string) string {
	if d := answerDirection(query); d != "" {
		return d
	}
	if len(pending.Options) == 1 && affirmative(query) {
		return "sender"
	}
	return ""
}

func affirmative(query string) bool {
	switch strings.Trim(strings.ToLower(strings.TrimSpace(query)), ".!") {
	case "yes", "ok", "okay", "sure", "yep":
		return true
	}
	return false
}

// resumePending applies the answered direction to the deferred turn and
// executes it. A direction the dataset cannot serve restates the question
// instead of producing a mis-dimensioned result.
func (s *Service) resumePending(ctx context.Context, sess *conversation.Session, query, direction string) (*Response, error) {
	pending := sess.Pending
	dim := directionalDimension(pending.Kind, direction)
	if dim == "" {
		restated := *pending
		restated.Entities = pending.Entities.Clone()
		restated.Question = unsupportedStateQuestion
		restated.Options = []string{"sender_state"}
		s.sessions.SetPending(sess.ID, &restated)
		return clarificationResponse(sess.ID, query, restated.Entities, &restated), nil
	}

	entities := pending.Entities.Clone()
	key := nlp.KeySegmentBy
	intent := nlp.IntentSegmentation
	if pending.Mode == conversation.ModeComparative {
		key = nlp.KeyComparisonDimension
		intent = nlp.IntentComparative
	}
	entities[key] = dim

	s.sessions.ClearPending(sess.ID)
	merged := s.sessions.MergeEntities(sess.ID, entities)

	s.log.Info().
		Str("session_id", sess.ID).
		Str("clarification", string(pending.Kind)).
		Str("resolved_dimension", dim).
		Msg("clarification resolved")

	// Execute against the original deferred query so its ranking cues still
	// apply.
	return s.execute(ctx, sess.ID, pending.Query, intent, merged)
}

// adjustIntent applies the follow-up heuristics: a descriptive turn that
// adds only filters to a session whose last turn was grouped or risk-focused
// continues that analysis, and a descriptive turn whose merged entities
// carry a comparison dimension upgrades to comparative.
func (s *Service) adjustIntent(sess *conversation.Session, intent nlp.Intent, entities, merged nlp.EntitySet) nlp.Intent {
	if intent != nlp.IntentDescriptive {
		return intent
	}
	if _, _, grouped := entities.GroupingKey(); grouped || entities.Has(nlp.KeyMetric) {
		return intent
	}
	switch sess.LastIntent {
	case nlp.IntentComparative, nlp.IntentSegmentation, nlp.IntentRisk:
		return sess.LastIntent
	}
	if merged.Has(nlp.KeyComparisonDimension) {
		return nlp.IntentComparative
	}
	return intent
}

func (s *Service) execute(ctx context.Context, sessionID, query string, intent nlp.Intent, entities nlp.EntitySet) (*Response, error) {
	result, err := s.builder.Execute(ctx, intent, entities, query)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("plan execution failed")
		return nil, err
	}

	explanation := result.Summary()
	if s.explainer != nil {
		explanation = s.explainer.Explain(ctx, query, intent, entities, result)
	}

	s.sessions.Update(sessionID, query, intent, entities, result.Summary(), map[string]float64{
		"row_count": float64(result.RowCount()),
	})

	return &Response{
		SessionID:   sessionID,
		Query:       query,
		Intent:      intent,
		Confidence:  confidence(entities),
		Entities:    entities,
		Result:      result,
		Explanation: explanation,
	}, nil
}

func clarificationResponse(sessionID, query string, entities nlp.EntitySet, c *conversation.Clarification) *Response {
	return &Response{
		SessionID:  sessionID,
		Query:      query,
		Intent:     nlp.IntentClarification,
		Confidence: confidence(entities),
		Entities:   entities,
		Clarification: &Clarify{
			NeedsClarification: true,
			Type:               string(c.Kind),
			Options:            c.Options,
			Question:           c.Question,
		},
	}
}

func confidence(entities nlp.EntitySet) float64 {
	c := confidenceBase + confidencePerKey*float64(len(entities))
	if c > confidenceCeiling {
		c = confidenceCeiling
	}
	return c
}

// Sessions exposes the underlying conversation store for the transport
// layer's session endpoints.
func (s *Service) Sessions() *conversation.Store {
	return s.sessions
}

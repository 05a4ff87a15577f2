package engine

import (
	"strings"

	"github.com/insightx/insightx/internal/conversation"
	"github.com/insightx/insightx/internal/domain"
	"github.com/insightx/insightx/internal/nlp"
)

// detectAmbiguity inspects a freshly extracted entity set for a grouping
// request that cannot execute without a sender/receiver direction. Filters
// never trigger clarification; a cue-less filter defaults to the sender side
// in the plan builder instead.
func detectAmbiguity(query string, intent nlp.Intent, e nlp.EntitySet) *conversation.Clarification {
	key, value, ok := e.GroupingKey()
	if !ok {
		return nil
	}

	mode := conversation.ModeSegmentation
	if key == nlp.KeyComparisonDimension {
		mode = conversation.ModeComparative
	}

	c := &conversation.Clarification{
		Mode:     mode,
		Query:    query,
		Intent:   intent,
		Entities: e.Clone(),
	}

	switch value {
	case nlp.GroupBank:
		c.Kind = conversation.ClarifyBankDirection
		c.Options = []string{domain.DimSenderBank, domain.DimReceiverBank}
		c.Question = "Do you mean sender banks or receiver banks?"
	case nlp.GroupState:
		c.Kind = conversation.ClarifyStateDirection
		c.Options = []string{domain.DimSenderState, nlp.KeyReceiverState.String()}
		c.Question = "Do you mean sender states or receiver states?"
	case nlp.GroupAgeGroup:
		c.Kind = conversation.ClarifyAgeDirection
		c.Options = []string{domain.DimSenderAgeGroup, domain.DimReceiverAgeGroup}
		c.Question = "Do you mean sender age groups or receiver age groups?"
	case nlp.KeyReceiverState.String():
		// The dataset records sender state only.
		c.Kind = conversation.ClarifyStateDirection
		c.Options = []string{domain.DimSenderState}
		c.Question = unsupportedStateQuestion
	default:
		return nil
	}
	return c
}

const unsupportedStateQuestion = "Receiver state is not recorded in this dataset; " +
	"only sender states are available. Group by sender states instead?"

// answerDirection scans a clarification answer for a direction cue. An empty
// return means the query carries no answer and should be treated as a fresh
// question.
func answerDirection(query string) string {
	q := strings.ToLower(query)
	for _, w := range strings.Fields(q) {
		w = strings.Trim(w, ",.?!")
		switch w {
		case "sender", "senders", "sending", "from":
			return "sender"
		case "receiver", "receivers", "receiving", "to":
			return "receiver"
		}
	}
	return ""
}

// directionalDimension resolves a clarification kind plus an answered
// direction into a concrete dataset dimension. Receiver state resolves to
// empty: the dataset cannot serve it.
func directionalDimension(kind conversation.ClarificationKind, direction string) string {
	switch kind {
	case conversation.ClarifyBankDirection:
		if direction == "receiver" {
			return domain.DimReceiverBank
		}
		return domain.DimSenderBank
	case conversation.ClarifyAgeDirection:
		if direction == "receiver" {
			return domain.DimReceiverAgeGroup
		}
		return domain.DimSenderAgeGroup
	case conversation.ClarifyStateDirection:
		if direction == "receiver" {
			return ""
		}
		return domain.DimSenderState
	}
	return ""
}

// Package response renders human-readable explanations of analysis results.
// Template rendering is the source of truth; an optional text model can
// rephrase, with the template as fallback. The analytics core never depends
// on the model being reachable.
package response

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/insightx/insightx/internal/analysis"
	"github.com/insightx/insightx/internal/nlp"
)

// TextModel generates free text from a prompt.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator builds explanations from analysis results.
type Generator struct {
	log   zerolog.Logger
	model TextModel
}

// NewGenerator creates a generator. model may be nil; explanations are then
// always template-rendered.
func NewGenerator(log zerolog.Logger, model TextModel) *Generator {
	return &Generator{log: log, model: model}
}

// Explain renders an explanation for a result. Model failures are logged and
// fall back to the template.
func (g *Generator) Explain(ctx context.Context, query string, intent nlp.Intent, entities nlp.EntitySet, result analysis.Result) string {
	base := g.render(entities, result)
	if g.model == nil {
		return base
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return base
	}
	prompt := "Summarize this payments analytics result in 2-3 plain sentences " +
		"for a business user. No Markdown, no code fences.\n\n" +
		"Question: " + query + "\n\nResult JSON:\n" + string(payload)

	text, err := g.model.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		g.log.Warn().Err(err).Msg("text model unavailable, using template explanation")
		return base
	}
	return strings.TrimSpace(text)
}

func (g *Generator) render(entities nlp.EntitySet, result analysis.Result) string {
	switch r := result.(type) {
	case *analysis.Descriptive:
		return renderDescriptive(entities, r)
	case *analysis.Comparative:
		return renderComparative(r)
	case *analysis.Segmentation:
		return renderSegmentation(r)
	case *analysis.Risk:
		return renderRisk(r)
	}
	return result.Summary()
}

func renderDescriptive(entities nlp.EntitySet, r *analysis.Descriptive) string {
	if r.TotalCount == 0 {
		return r.Note
	}

	scope := ""
	if v, ok := entities.String(nlp.KeyMerchantCategory); ok {
		scope = " for " + v
	}
	if v, ok := entities.String(nlp.KeySenderState); ok {
		scope += " in " + v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d transactions%s.", r.TotalCount, scope)
	if r.Statistics != nil {
		fmt.Fprintf(&b, " The average amount is ₹%.2f with a total of ₹%.2f.",
			r.Statistics.AverageAmount, r.Statistics.TotalAmount)
	}
	fmt.Fprintf(&b, " Success rate: %.1f%%.", r.SuccessRate)
	if r.TimeBreakdown != nil && len(r.TimeBreakdown.PeakHours) > 0 {
		fmt.Fprintf(&b, " Peak activity at %d:00.", r.TimeBreakdown.PeakHours[0].Hour)
	}
	return b.String()
}

func renderComparative(r *analysis.Comparative) string {
	if len(r.Data) == 0 {
		return r.Note
	}
	best := r.Data[0]
	return fmt.Sprintf("Compared %d groups by %s. %s leads with an average of ₹%.2f across %d transactions.",
		len(r.Data), humanKey(r.ComparisonKey), best.Name, best.AverageAmount, best.TransactionCount)
}

func renderSegmentation(r *analysis.Segmentation) string {
	if len(r.Segments) == 0 {
		return r.Note
	}
	top := r.Segments[0]
	return fmt.Sprintf("Identified %d segments by %s. The %s segment is most active with %d transactions averaging ₹%.2f.",
		len(r.Segments), humanKey(r.SegmentKey), top.Segment, top.TransactionCount, top.AverageTransactionValue)
}

func renderRisk(r *analysis.Risk) string {
	if r.TotalTransactions == 0 {
		return r.Note
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Out of %d transactions, %d (%.2f%%) were flagged as fraud and %d (%.2f%%) failed. Overall risk level: %s.",
		r.TotalTransactions, r.FraudCount, r.FraudRatePercent,
		r.FailedCount, r.FailureRatePercent, r.RiskLevel)
	if len(r.FraudByCategory) > 0 {
		fmt.Fprintf(&b, " Most fraud occurs in %s.", r.FraudByCategory[0].Category)
	}
	if len(r.FraudHotspotsByState) > 0 {
		fmt.Fprintf(&b, " Highest fraud rate by state: %s (%.2f%%).",
			r.FraudHotspotsByState[0].Name, r.FraudHotspotsByState[0].Rate)
	}
	if len(r.FailureHotspotsByState) > 0 {
		fmt.Fprintf(&b, " Highest failure rate by state: %s (%.2f%%).",
			r.FailureHotspotsByState[0].Name, r.FailureHotspotsByState[0].Rate)
	}
	return b.String()
}

func humanKey(dim string) string {
	return strings.ReplaceAll(dim, "_", " ")
}

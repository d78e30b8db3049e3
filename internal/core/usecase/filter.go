package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// FilterSynthesizer converts a question into a structured retrieval filter
// over the closed field set of the index. An empty result means "no filter":
// downstream retrieval is skipped instead of failing.
type FilterSynthesizer struct {
	gen      ports.TextGenerator
	partners []string
	log      *slog.Logger
}

func NewFilterSynthesizer(gen ports.TextGenerator, partners []string, log *slog.Logger) *FilterSynthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &FilterSynthesizer{gen: gen, partners: partners, log: log}
}

// Synthesize returns an exact-match filter expression, or "" when the model
// could not confidently map the question to one. Output that is neither the
// sentinel nor a filter over the allowed fields is treated as "no filter",
// consistent with the router's safe-default handling of malformed output.
func (s *FilterSynthesizer) Synthesize(ctx context.Context, question string) (string, error) {
	raw, err := s.gen.Generate(ctx, s.buildFilterPrompt(question))
	if err != nil {
		return "", fmt.Errorf("synthesize filter: %w", err)
	}

	filter := strings.TrimSpace(raw)
	if filter == "" || filter == domain.NoFilter {
		s.log.Info("filter_not_generated")
		return "", nil
	}
	if !strings.Contains(filter, "PartnerName") && !strings.Contains(filter, "InvoiceType") {
		s.log.Warn("filter_malformed", "raw_filter", filter)
		return "", nil
	}

	s.log.Info("filter_generated", "filter", filter)
	return filter, nil
}

func (s *FilterSynthesizer) buildFilterPrompt(question string) string {
	return fmt.Sprintf(`You are an expert programmer converting questions into OData filters for a search index.
Available fields: PartnerName, InvoiceType.
Rules: PartnerName can be %s. InvoiceType can be '%s' or '%s'.
Use 'eq' for strings and 'and' to combine. If no filter is needed, respond '%s'.
Respond ALWAYS AND ONLY with the filter or '%s'.

Question: %s`,
		quotedList(s.partners),
		domain.TypeIncome,
		domain.TypeExpense,
		domain.NoFilter,
		domain.NoFilter,
		question,
	)
}

func quotedList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return strings.Join(quoted, ", ")
}

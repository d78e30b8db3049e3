package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// Classifier tries an ordered list of analyzer profiles against a document
// and accepts the first confident, type-matching result. The profile order
// encodes the business priority: issued invoices are checked before received
// ones, and the two never both match.
type Classifier struct {
	analyzer  ports.DocumentAnalyzer
	profiles  []domain.AnalyzerProfile
	threshold float64
	log       *slog.Logger
}

func NewClassifier(
	analyzer ports.DocumentAnalyzer,
	profiles []domain.AnalyzerProfile,
	threshold float64,
	log *slog.Logger,
) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		analyzer:  analyzer,
		profiles:  profiles,
		threshold: threshold,
		log:       log,
	}
}

// Classify returns the accepted candidate and the profile that produced it.
// A profile is accepted only when the analyzer extracted a document whose
// detected type equals the profile's expected type with confidence above the
// threshold. Profile-level rejections are skipped; exhausting every profile
// yields ErrClassificationFailed. Infrastructure errors from the analyzer
// abort immediately.
func (c *Classifier) Classify(ctx context.Context, raw []byte) (*domain.AnalysisCandidate, domain.AnalyzerProfile, error) {
	for _, profile := range c.profiles {
		candidate, err := c.analyzer.Analyze(ctx, profile.ModelID, raw)
		if err != nil {
			return nil, domain.AnalyzerProfile{}, fmt.Errorf("analyze with %s: %w", profile.ModelID, err)
		}
		if candidate == nil {
			c.log.Warn("analyzer_profile_no_candidate", "model_id", profile.ModelID)
			continue
		}

		c.log.Info("analyzer_profile_result",
			"model_id", profile.ModelID,
			"doc_type", candidate.DocType,
			"confidence", candidate.Confidence,
		)

		if candidate.DocType != profile.ExpectedDocType || candidate.Confidence <= c.threshold {
			c.log.Warn("analyzer_profile_not_accepted",
				"model_id", profile.ModelID,
				"expected_doc_type", profile.ExpectedDocType,
				"doc_type", candidate.DocType,
				"confidence", candidate.Confidence,
				"threshold", c.threshold,
			)
			continue
		}

		return candidate, profile, nil
	}

	return nil, domain.AnalyzerProfile{}, domain.WrapError(
		domain.ErrClassificationFailed,
		"classify invoice",
		fmt.Errorf("no analyzer profile accepted the document"),
	)
}

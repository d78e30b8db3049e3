package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// IngestInvoiceUseCase runs the linear ingestion pipeline:
// hash -> duplicate check -> classify -> build record -> index write.
// Every stage failure aborts the pipeline with a structured outcome;
// no partial record is ever written to the index.
type IngestInvoiceUseCase struct {
	index      ports.InvoiceIndex
	classifier *Classifier
	log        *slog.Logger
}

func NewIngestInvoiceUseCase(
	index ports.InvoiceIndex,
	classifier *Classifier,
	log *slog.Logger,
) *IngestInvoiceUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IngestInvoiceUseCase{
		index:      index,
		classifier: classifier,
		log:        log,
	}
}

func (uc *IngestInvoiceUseCase) Ingest(
	ctx context.Context,
	raw []byte,
	sourceFile, partnerName string,
) domain.IngestOutcome {
	fingerprint := domain.ComputeFingerprint(raw)
	uc.log.Info("invoice_fingerprint", "source_file", sourceFile, "file_hash", fingerprint.String())

	if uc.isDuplicate(ctx, fingerprint) {
		uc.log.Warn("invoice_duplicate", "file_hash", fingerprint.String())
		return domain.IngestOutcome{
			FailureKind: domain.FailureDuplicate,
			Message:     "this invoice was already ingested",
		}
	}

	candidate, profile, err := uc.classifier.Classify(ctx, raw)
	if err != nil {
		if domain.IsKind(err, domain.ErrClassificationFailed) {
			return domain.IngestOutcome{
				FailureKind: domain.FailureClassification,
				Message:     "no analyzer profile accepted the document",
			}
		}
		return domain.IngestOutcome{
			FailureKind: domain.FailureUnexpected,
			Message:     err.Error(),
		}
	}
	uc.log.Info("invoice_classified", "invoice_type", profile.InvoiceType, "model_id", profile.ModelID)

	record := BuildInvoiceRecord(candidate, profile, partnerName, sourceFile, fingerprint)

	if err := uc.index.Write(ctx, record); err != nil {
		uc.log.Error("invoice_index_write_failed", "record_id", record.ID, "error", err)
		return domain.IngestOutcome{
			FailureKind: domain.FailureWrite,
			Message:     fmt.Sprintf("write record to index: %v", err),
		}
	}
	uc.log.Info("invoice_indexed", "record_id", record.ID, "invoice_type", record.InvoiceType)

	return domain.IngestOutcome{
		Success: true,
		Record:  &record,
	}
}

// isDuplicate fails closed: an index error counts as "duplicate" so a
// transient outage can never let the same invoice in twice. The cost is that
// a legitimate new document may be blocked until the index recovers; that
// trade-off is deliberate.
func (uc *IngestInvoiceUseCase) isDuplicate(ctx context.Context, fingerprint domain.Fingerprint) bool {
	filter := fmt.Sprintf("file_hash eq '%s'", fingerprint)
	count, err := uc.index.Count(ctx, filter)
	if err != nil {
		uc.log.Error("duplicate_check_failed", "file_hash", fingerprint.String(), "error", err)
		return true
	}
	return count > 0
}

package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// ProcessUploadUseCase is the worker-side entry point: it loads a stored
// upload, runs the ingestion pipeline over its bytes and records the
// structured outcome on the tracking row. Pipeline rejections (duplicate,
// classification exhaustion) are recorded, not returned as errors; only
// infrastructure problems (repo, storage) surface to the caller.
type ProcessUploadUseCase struct {
	repo    ports.UploadRepository
	storage ports.ObjectStorage
	ingest  *IngestInvoiceUseCase
	log     *slog.Logger
}

func NewProcessUploadUseCase(
	repo ports.UploadRepository,
	storage ports.ObjectStorage,
	ingest *IngestInvoiceUseCase,
	log *slog.Logger,
) *ProcessUploadUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessUploadUseCase{
		repo:    repo,
		storage: storage,
		ingest:  ingest,
		log:     log,
	}
}

func (uc *ProcessUploadUseCase) ProcessByID(ctx context.Context, uploadID string) error {
	upload, err := uc.repo.GetByID(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("fetch upload by id: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, uploadID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	raw, err := uc.readStoredBytes(ctx, upload.StoragePath)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, uploadID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	outcome := uc.ingest.Ingest(ctx, raw, upload.Filename, upload.PartnerName)
	if !outcome.Success {
		uc.log.Warn("upload_rejected",
			"upload_id", uploadID,
			"failure_kind", string(outcome.FailureKind),
			"message", outcome.Message,
		)
	}

	if err := uc.repo.SaveOutcome(ctx, uploadID, outcome); err != nil {
		return fmt.Errorf("save ingest outcome: %w", err)
	}
	return nil
}

func (uc *ProcessUploadUseCase) readStoredBytes(ctx context.Context, storagePath string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("open stored upload: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read stored upload", errEmptyUpload)
	}
	return raw, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
)

// SubmitUploadUseCase accepts an invoice file, stores the raw bytes, records
// a tracking row and schedules asynchronous processing.
type SubmitUploadUseCase struct {
	repo     ports.UploadRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	partners []string
}

func NewSubmitUploadUseCase(
	repo ports.UploadRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	partners []string,
) *SubmitUploadUseCase {
	return &SubmitUploadUseCase{
		repo:     repo,
		storage:  storage,
		queue:    queue,
		partners: partners,
	}
}

func (uc *SubmitUploadUseCase) Submit(
	ctx context.Context,
	filename, mimeType, partnerName string,
	body io.Reader,
) (*domain.Upload, error) {
	partner := strings.ToUpper(strings.TrimSpace(partnerName))
	if !uc.knownPartner(partner) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"submit upload",
			fmt.Errorf("unknown partner %q", partnerName),
		)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	upload := &domain.Upload{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		PartnerName: partner,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("create upload tracking row: %w", err)
	}

	if err := uc.queue.PublishUploadReceived(ctx, upload.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return upload, nil
}

func (uc *SubmitUploadUseCase) knownPartner(partner string) bool {
	for _, known := range uc.partners {
		if partner == known {
			return true
		}
	}
	return false
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "invoice.bin"
	}
	return base
}

var errEmptyUpload = errors.New("stored upload is empty")

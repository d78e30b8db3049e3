package ports

import (
	"context"
	"io"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

// TextGenerator is the external text-generation service used by the question
// router, the filter synthesizer and the answer composer. Timeouts and
// retries are the adapter's policy; the core treats failures as pass-through.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// InvoiceIndex is the external search index holding invoice records. It must
// support exact-match filters on the fingerprint field and on the enumerated
// type/partner fields. Write/read consistency is the index's guarantee: a
// just-written record must be visible to a subsequent duplicate check.
type InvoiceIndex interface {
	Query(ctx context.Context, filter string) ([]domain.InvoiceRecord, error)
	Count(ctx context.Context, filter string) (int, error)
	Write(ctx context.Context, record domain.InvoiceRecord) error
}

// DocumentAnalyzer runs one analysis model against raw document bytes.
// A nil candidate with a nil error means the service rejected this
// model/document pair; only infrastructure problems surface as errors.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, modelID string, raw []byte) (*domain.AnalysisCandidate, error)
}

// UploadRepository persists upload-tracking state.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
	UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMessage string) error
	SaveOutcome(ctx context.Context, id string, outcome domain.IngestOutcome) error
}

// ObjectStorage stores raw invoice files between upload and processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishUploadReceived(ctx context.Context, uploadID string) error
	SubscribeUploadReceived(ctx context.Context, handler func(context.Context, string) error) error
}

// ConversationStore persists question/answer exchanges.
type ConversationStore interface {
	AppendMessage(ctx context.Context, message domain.ConversationMessage) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ConversationMessage, error)
}

package ports

import (
	"context"
	"io"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for answering a natural-language
// question about invoices.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question, conversationID string) (*domain.Answer, error)
}

// InvoiceIngestor runs the synchronous ingestion pipeline over raw bytes.
// The outcome is always well-formed; pipeline failures are carried in it.
type InvoiceIngestor interface {
	Ingest(ctx context.Context, raw []byte, sourceFile, partnerName string) domain.IngestOutcome
}

// UploadSubmitter is the inbound contract for accepting an invoice upload
// and scheduling its asynchronous processing.
type UploadSubmitter interface {
	Submit(ctx context.Context, filename, mimeType, partnerName string, body io.Reader) (*domain.Upload, error)
}

// UploadReader is the inbound read model for upload-tracking state.
type UploadReader interface {
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
}

// UploadProcessor is the inbound contract for asynchronous upload processing.
type UploadProcessor interface {
	ProcessByID(ctx context.Context, uploadID string) error
}

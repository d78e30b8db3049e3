package domain

import "time"

// InvoiceType is the binary classification tag of a stored invoice.
// Values are kept in the index vocabulary of the accounting team.
type InvoiceType string

const (
	TypeIncome  InvoiceType = "ingreso"
	TypeExpense InvoiceType = "egreso"
)

// InvoiceRecord is the normalized unit persisted in the search index.
// Field names mirror the index schema and must not change without a
// reindex. Records are append-only: once written they are never mutated.
type InvoiceRecord struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	VendorName   string      `json:"VendorName"`
	InvoiceDate  string      `json:"InvoiceDate"`
	InvoiceTotal float64     `json:"InvoiceTotal"`
	TotalTax     float64     `json:"TotalTax"`
	SourceFile   string      `json:"source_file"`
	DocumentType string      `json:"document_type"`
	ProcessedAt  time.Time   `json:"processed_at"`
	InvoiceType  InvoiceType `json:"InvoiceType"`
	PartnerName  string      `json:"PartnerName"`
	FileHash     string      `json:"file_hash"`
}

// InvoiceFields is the serialized shape of the record's content payload.
// Aggregation re-parses it when summing totals.
type InvoiceFields struct {
	VendorName   string  `json:"VendorName"`
	InvoiceDate  string  `json:"InvoiceDate"`
	InvoiceTotal float64 `json:"InvoiceTotal"`
	TotalTax     float64 `json:"TotalTax"`
}

type UploadStatus string

const (
	StatusUploaded   UploadStatus = "uploaded"
	StatusProcessing UploadStatus = "processing"
	StatusIndexed    UploadStatus = "indexed"
	StatusRejected   UploadStatus = "rejected"
	StatusFailed     UploadStatus = "failed"
)

// Upload tracks one submitted invoice file through the ingestion pipeline.
type Upload struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	MimeType    string       `json:"mime_type"`
	StoragePath string       `json:"storage_path"`
	PartnerName string       `json:"partner_name"`
	Status      UploadStatus `json:"status"`
	FailureKind FailureKind  `json:"failure_kind,omitempty"`
	RecordID    string       `json:"record_id,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// FailureKind discriminates why an ingestion attempt did not produce a record.
type FailureKind string

const (
	FailureDuplicate      FailureKind = "duplicate"
	FailureClassification FailureKind = "classification_failed"
	FailureWrite          FailureKind = "write_failed"
	FailureUnexpected     FailureKind = "unexpected"
)

// IngestOutcome is the structured result of one pipeline run. Exactly one of
// Record / FailureKind is set.
type IngestOutcome struct {
	Success     bool           `json:"success"`
	Record      *InvoiceRecord `json:"record,omitempty"`
	FailureKind FailureKind    `json:"failure_kind,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// UploadStatus maps the outcome onto the tracking-row status. Duplicates and
// classification exhaustion are business rejections, not operational failures.
func (o IngestOutcome) UploadStatus() UploadStatus {
	if o.Success {
		return StatusIndexed
	}
	switch o.FailureKind {
	case FailureDuplicate, FailureClassification:
		return StatusRejected
	default:
		return StatusFailed
	}
}

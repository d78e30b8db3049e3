package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

// Fakes shared by the use case tests. Behavior is injected per test through
// plain funcs; calls are recorded for assertion.

type fakeAnalyzer struct {
	analyzeFn func(modelID string, raw []byte) (*domain.AnalysisCandidate, error)
	calls     []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, modelID string, raw []byte) (*domain.AnalysisCandidate, error) {
	f.calls = append(f.calls, modelID)
	if f.analyzeFn == nil {
		return nil, nil
	}
	return f.analyzeFn(modelID, raw)
}

type fakeIndex struct {
	queryFn func(filter string) ([]domain.InvoiceRecord, error)
	countFn func(filter string) (int, error)
	writeFn func(record domain.InvoiceRecord) error

	queryFilters []string
	countFilters []string
	written      []domain.InvoiceRecord
}

func (f *fakeIndex) Query(_ context.Context, filter string) ([]domain.InvoiceRecord, error) {
	f.queryFilters = append(f.queryFilters, filter)
	if f.queryFn == nil {
		return nil, nil
	}
	return f.queryFn(filter)
}

func (f *fakeIndex) Count(_ context.Context, filter string) (int, error) {
	f.countFilters = append(f.countFilters, filter)
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(filter)
}

func (f *fakeIndex) Write(_ context.Context, record domain.InvoiceRecord) error {
	f.written = append(f.written, record)
	if f.writeFn == nil {
		return nil
	}
	return f.writeFn(record)
}

type fakeGenerator struct {
	generateFn func(prompt string) (string, error)
	prompts    []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.generateFn == nil {
		return "", nil
	}
	return f.generateFn(prompt)
}

type fakeUploadRepo struct {
	uploads map[string]*domain.Upload

	createErr error
	statusErr error

	statuses []domain.UploadStatus
	outcomes map[string]domain.IngestOutcome
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{
		uploads:  map[string]*domain.Upload{},
		outcomes: map[string]domain.IngestOutcome{},
	}
}

func (f *fakeUploadRepo) Create(_ context.Context, upload *domain.Upload) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.uploads[upload.ID] = upload
	return nil
}

func (f *fakeUploadRepo) GetByID(_ context.Context, id string) (*domain.Upload, error) {
	upload, ok := f.uploads[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", errors.New("not tracked"))
	}
	return upload, nil
}

func (f *fakeUploadRepo) UpdateStatus(_ context.Context, id string, status domain.UploadStatus, errMessage string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, status)
	if upload, ok := f.uploads[id]; ok {
		upload.Status = status
		upload.Error = errMessage
	}
	return nil
}

func (f *fakeUploadRepo) SaveOutcome(_ context.Context, id string, outcome domain.IngestOutcome) error {
	f.outcomes[id] = outcome
	if upload, ok := f.uploads[id]; ok {
		upload.Status = outcome.UploadStatus()
	}
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
	openErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.saved[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishUploadReceived(_ context.Context, uploadID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, uploadID)
	return nil
}

func (f *fakeQueue) SubscribeUploadReceived(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type fakeConversations struct {
	messages  []domain.ConversationMessage
	appendErr error
}

func (f *fakeConversations) AppendMessage(_ context.Context, message domain.ConversationMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeConversations) ListRecentMessages(_ context.Context, _ string, _ int) ([]domain.ConversationMessage, error) {
	return f.messages, nil
}

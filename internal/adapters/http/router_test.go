package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

type stubSubmitter struct {
	upload *domain.Upload
	err    error

	gotFilename string
	gotPartner  string
}

func (s *stubSubmitter) Submit(_ context.Context, filename, _, partnerName string, body io.Reader) (*domain.Upload, error) {
	s.gotFilename = filename
	s.gotPartner = partnerName
	_, _ = io.Copy(io.Discard, body)
	if s.err != nil {
		return nil, s.err
	}
	return s.upload, nil
}

type stubReader struct {
	upload *domain.Upload
	err    error
}

func (s *stubReader) GetByID(_ context.Context, id string) (*domain.Upload, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.upload != nil {
		return s.upload, nil
	}
	return &domain.Upload{ID: id, Status: domain.StatusUploaded}, nil
}

type stubAnswerer struct {
	answer *domain.Answer
	err    error
}

func (s *stubAnswerer) Ask(_ context.Context, _, _ string) (*domain.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func newUploadRequest(t *testing.T, partner string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "factura.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 test")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if partner != "" {
		if err := mw.WriteField("partner", partner); err != nil {
			t.Fatalf("write partner field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadInvoiceAcceptsMultipart(t *testing.T) {
	submitter := &stubSubmitter{
		upload: &domain.Upload{ID: "u-1", PartnerName: "JONI", Status: domain.StatusUploaded},
	}
	handler := NewRouter(submitter, &stubReader{}, &stubAnswerer{}, nil, 0, 0, 0).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newUploadRequest(t, "joni"))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if submitter.gotFilename != "factura.pdf" {
		t.Fatalf("expected filename forwarded, got %q", submitter.gotFilename)
	}
	if submitter.gotPartner != "joni" {
		t.Fatalf("expected raw partner forwarded, got %q", submitter.gotPartner)
	}

	var upload domain.Upload
	if err := json.NewDecoder(res.Body).Decode(&upload); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if upload.ID != "u-1" || upload.Status != domain.StatusUploaded {
		t.Fatalf("unexpected upload payload: %+v", upload)
	}
}

func TestUploadInvoiceRequiresPartnerField(t *testing.T) {
	handler := NewRouter(&stubSubmitter{}, &stubReader{}, &stubAnswerer{}, nil, 0, 0, 0).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newUploadRequest(t, ""))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without partner field, got %d", res.Code)
	}
}

func TestUploadInvoiceMapsUnknownPartnerTo400(t *testing.T) {
	submitter := &stubSubmitter{
		err: domain.WrapError(domain.ErrInvalidInput, "submit upload", errors.New("unknown partner")),
	}
	handler := NewRouter(submitter, &stubReader{}, &stubAnswerer{}, nil, 0, 0, 0).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newUploadRequest(t, "NOBODY"))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown partner, got %d", res.Code)
	}
}

func TestGetUploadMapsNotFoundTo404(t *testing.T) {
	reader := &stubReader{
		err: domain.WrapError(domain.ErrUploadNotFound, "get upload", errors.New("no row")),
	}
	handler := NewRouter(&stubSubmitter{}, reader, &stubAnswerer{}, nil, 0, 0, 0).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestChatReturnsAnswerEnvelope(t *testing.T) {
	answerer := &stubAnswerer{
		answer: &domain.Answer{
			Text:           "He encontrado 3 facturas.",
			Task:           domain.TaskSimpleSearch,
			RetrievedCount: 3,
		},
	}
	handler := NewRouter(&stubSubmitter{}, &stubReader{}, answerer, nil, 0, 0, 0).Handler()

	body := strings.NewReader(`{"question":"facturas de JONI","conversation_id":"c-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success=true")
	}
	if resp.TaskCategory != "simple_search" || resp.DocumentsRetrieved != 3 {
		t.Fatalf("unexpected chat envelope: %+v", resp)
	}
	if resp.Answer != "He encontrado 3 facturas." {
		t.Fatalf("unexpected answer text: %q", resp.Answer)
	}
	if resp.ProcessingTimeSeconds < 0 {
		t.Fatalf("expected non-negative processing time")
	}
}

func TestChatRejectsEmptyQuestion(t *testing.T) {
	handler := NewRouter(&stubSubmitter{}, &stubReader{}, &stubAnswerer{}, nil, 0, 0, 0).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank question, got %d", res.Code)
	}
}

func TestChatMapsTemporaryErrorTo503(t *testing.T) {
	answerer := &stubAnswerer{
		err: domain.WrapError(domain.ErrTemporary, "ask question", errors.New("generator unavailable")),
	}
	handler := NewRouter(&stubSubmitter{}, &stubReader{}, answerer, nil, 0, 0, 0).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"balance"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for temporary failure, got %d", res.Code)
	}
}

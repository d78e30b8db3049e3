package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

func seedUpload(repo *fakeUploadRepo, storage *fakeStorage, id string, raw []byte) {
	repo.uploads[id] = &domain.Upload{
		ID:          id,
		Filename:    "factura.pdf",
		StoragePath: id + "_factura.pdf",
		PartnerName: "JONI",
		Status:      domain.StatusUploaded,
	}
	if raw != nil {
		storage.saved[id+"_factura.pdf"] = raw
	}
}

func TestProcessByIDIndexesAndMarksIndexed(t *testing.T) {
	repo := newFakeUploadRepo()
	storage := newFakeStorage()
	seedUpload(repo, storage, "u-1", []byte("invoice bytes"))

	index := &fakeIndex{}
	uc := NewProcessUploadUseCase(repo, storage, newTestIngest(index, acceptingAnalyzer()), nil)

	if err := uc.ProcessByID(context.Background(), "u-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.statuses) == 0 || repo.statuses[0] != domain.StatusProcessing {
		t.Fatalf("expected processing status first, got %v", repo.statuses)
	}
	outcome, ok := repo.outcomes["u-1"]
	if !ok || !outcome.Success {
		t.Fatalf("expected successful outcome recorded, got %+v", outcome)
	}
	if repo.uploads["u-1"].Status != domain.StatusIndexed {
		t.Fatalf("expected indexed status, got %s", repo.uploads["u-1"].Status)
	}
	if len(index.written) != 1 {
		t.Fatalf("expected record written to the index")
	}
}

func TestProcessByIDRecordsRejectionWithoutError(t *testing.T) {
	repo := newFakeUploadRepo()
	storage := newFakeStorage()
	seedUpload(repo, storage, "u-2", []byte("not an invoice"))

	// Analyzer yields no candidate for any profile.
	uc := NewProcessUploadUseCase(repo, storage, newTestIngest(&fakeIndex{}, &fakeAnalyzer{}), nil)

	if err := uc.ProcessByID(context.Background(), "u-2"); err != nil {
		t.Fatalf("business rejection must not surface as error, got %v", err)
	}
	outcome := repo.outcomes["u-2"]
	if outcome.Success || outcome.FailureKind != domain.FailureClassification {
		t.Fatalf("expected classification rejection, got %+v", outcome)
	}
	if repo.uploads["u-2"].Status != domain.StatusRejected {
		t.Fatalf("expected rejected status, got %s", repo.uploads["u-2"].Status)
	}
}

func TestProcessByIDFailsUnknownUpload(t *testing.T) {
	uc := NewProcessUploadUseCase(newFakeUploadRepo(), newFakeStorage(), newTestIngest(&fakeIndex{}, &fakeAnalyzer{}), nil)

	err := uc.ProcessByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrUploadNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestProcessByIDMarksFailedWhenStorageUnreadable(t *testing.T) {
	repo := newFakeUploadRepo()
	storage := newFakeStorage()
	seedUpload(repo, storage, "u-3", nil)
	storage.openErr = errors.New("object missing")

	uc := NewProcessUploadUseCase(repo, storage, newTestIngest(&fakeIndex{}, &fakeAnalyzer{}), nil)

	if err := uc.ProcessByID(context.Background(), "u-3"); err == nil {
		t.Fatalf("expected storage error surfaced")
	}
	if repo.uploads["u-3"].Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.uploads["u-3"].Status)
	}
}

func TestProcessByIDRejectsEmptyStoredFile(t *testing.T) {
	repo := newFakeUploadRepo()
	storage := newFakeStorage()
	seedUpload(repo, storage, "u-4", []byte{})

	uc := NewProcessUploadUseCase(repo, storage, newTestIngest(&fakeIndex{}, &fakeAnalyzer{}), nil)

	err := uc.ProcessByID(context.Background(), "u-4")
	if !errors.Is(err, errEmptyUpload) {
		t.Fatalf("expected empty-upload error, got %v", err)
	}
	if repo.uploads["u-4"].Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.uploads["u-4"].Status)
	}
}

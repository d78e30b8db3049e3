package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/opendoors/invoice-agent/internal/core/ports"
	"github.com/opendoors/invoice-agent/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	submitUC ports.UploadSubmitter
	reader   ports.UploadReader
	answerer ports.QuestionAnswerer
	metrics  *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
	maxConcurrent  int
}

func NewRouter(
	submitUC ports.UploadSubmitter,
	reader ports.UploadReader,
	answerer ports.QuestionAnswerer,
	m *metrics.HTTPServerMetrics,
	rateLimitRPS float64,
	rateLimitBurst int,
	maxConcurrent int,
) *Router {
	return &Router{
		submitUC:       submitUC,
		reader:         reader,
		answerer:       answerer,
		metrics:        m,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
		maxConcurrent:  maxConcurrent,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/invoices", rt.uploadInvoice)
	mux.HandleFunc("/v1/invoices/", rt.getUploadByID)
	mux.HandleFunc("/v1/chat", rt.chat)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxConcurrent, 50*time.Millisecond)
	handler = rt.rateLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	partner := r.FormValue("partner")
	if strings.TrimSpace(partner) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'partner' is required"})
		return
	}

	upload, err := rt.submitUC.Submit(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		partner,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, upload.PartnerName)
	}
	writeJSON(w, http.StatusAccepted, upload)
}

func (rt *Router) getUploadByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/invoices/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "upload id is required"})
		return
	}

	upload, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

type chatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Answer                string  `json:"answer"`
	Success               bool    `json:"success"`
	TaskCategory          string  `json:"task_category"`
	DocumentsRetrieved    int     `json:"documents_retrieved"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question, req.ConversationID)
	if err != nil {
		writeError(w, err)
		return
	}

	elapsed := time.Since(start)
	if rt.metrics != nil {
		rt.metrics.RecordQuestion(serviceName, string(answer.Task), answer.RetrievedCount, elapsed)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:                answer.Text,
		Success:               true,
		TaskCategory:          string(answer.Task),
		DocumentsRetrieved:    answer.RetrievedCount,
		ProcessingTimeSeconds: elapsed.Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

package docintel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

const apiVersion = "2024-11-30"

// Client is the document-analysis adapter over the Azure Document
// Intelligence REST API. Analysis is a long-running operation: one submit
// call returning an operation URL, then polling until a terminal status.
type Client struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	log          *slog.Logger
}

func New(endpoint, apiKey string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: 2 * time.Second,
		maxPolls:     60,
		log:          log,
	}
}

type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Documents []struct {
			DocType    string  `json:"docType"`
			Confidence float64 `json:"confidence"`
			Fields     map[string]struct {
				Content string `json:"content"`
			} `json:"fields"`
		} `json:"documents"`
	} `json:"analyzeResult"`
}

// Analyze runs one model against the raw bytes. A 4xx from the service, a
// failed analysis or a result without documents all mean "this model cannot
// read this document" and return a nil candidate with a nil error; only
// infrastructure problems surface as errors.
func (c *Client) Analyze(ctx context.Context, modelID string, raw []byte) (*domain.AnalysisCandidate, error) {
	operationURL, rejected, err := c.submit(ctx, modelID, raw)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, nil
	}

	result, err := c.poll(ctx, modelID, operationURL)
	if err != nil {
		return nil, err
	}
	if result.Status != "succeeded" || len(result.AnalyzeResult.Documents) == 0 {
		c.log.Warn("analysis_without_documents", "model_id", modelID, "status", result.Status)
		return nil, nil
	}

	document := result.AnalyzeResult.Documents[0]
	fields := make(map[string]string, len(document.Fields))
	for name, field := range document.Fields {
		fields[name] = field.Content
	}
	return &domain.AnalysisCandidate{
		DocType:    document.DocType,
		Confidence: document.Confidence,
		Fields:     fields,
	}, nil
}

func (c *Client) submit(ctx context.Context, modelID string, raw []byte) (string, bool, error) {
	payload := map[string]string{
		"base64Source": base64.StdEncoding.EncodeToString(raw),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, fmt.Errorf("marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.endpoint, modelID, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("docintel analyze request: %w", err)
	}
	defer resp.Body.Close()

	// A 4xx is the service rejecting this model/document pair, which the
	// classifier treats as "not accepted" rather than a fatal error.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("analyzer_rejected_document",
			"model_id", modelID,
			"status", resp.Status,
			"body", strings.TrimSpace(string(raw)),
		)
		return "", true, nil
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", false, fmt.Errorf("docintel analyze status: %s", resp.Status)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", false, fmt.Errorf("docintel analyze response missing Operation-Location")
	}
	return operationURL, false, nil
}

func (c *Client) poll(ctx context.Context, modelID, operationURL string) (*analyzeResult, error) {
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		result, err := c.fetchResult(ctx, operationURL)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case "succeeded", "failed":
			return result, nil
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("docintel analysis with %s did not finish after %d polls", modelID, c.maxPolls)
}

func (c *Client) fetchResult(ctx context.Context, operationURL string) (*analyzeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create result request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docintel result request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("docintel result status: %s", resp.Status)
	}

	var result analyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result response: %w", err)
	}
	return &result, nil
}

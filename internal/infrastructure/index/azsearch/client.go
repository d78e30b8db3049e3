package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/infrastructure/resilience"
)

const apiVersion = "2023-11-01"

// Client is the invoice-index adapter over the Azure AI Search REST API.
// Filters are OData expressions with exact matches on file_hash,
// InvoiceType and PartnerName.
type Client struct {
	endpoint   string
	indexName  string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint, indexName, apiKey string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		indexName:  indexName,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithExecutor enables retry/circuit-breaker handling on index calls.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

type searchResponse struct {
	Count int                    `json:"@odata.count"`
	Value []domain.InvoiceRecord `json:"value"`
}

func (c *Client) Query(ctx context.Context, filter string) ([]domain.InvoiceRecord, error) {
	reqBody := map[string]any{
		"search": "*",
		"filter": filter,
		"count":  true,
	}

	var resp searchResponse
	if err := c.execute(ctx, "azsearch.query", "/docs/search", reqBody, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Client) Count(ctx context.Context, filter string) (int, error) {
	reqBody := map[string]any{
		"search": "*",
		"filter": filter,
		"count":  true,
		"top":    0,
	}

	var resp searchResponse
	if err := c.execute(ctx, "azsearch.count", "/docs/search", reqBody, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) Write(ctx context.Context, record domain.InvoiceRecord) error {
	action := struct {
		Action string `json:"@search.action"`
		domain.InvoiceRecord
	}{
		Action:        "mergeOrUpload",
		InvoiceRecord: record,
	}
	reqBody := map[string]any{
		"value": []any{action},
	}

	var resp struct {
		Value []struct {
			Key          string `json:"key"`
			Status       bool   `json:"status"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"value"`
	}
	if err := c.execute(ctx, "azsearch.write", "/docs/index", reqBody, &resp); err != nil {
		return err
	}

	if len(resp.Value) == 0 || !resp.Value[0].Status {
		message := "unknown indexing error"
		if len(resp.Value) > 0 && resp.Value[0].ErrorMessage != "" {
			message = resp.Value[0].ErrorMessage
		}
		return domain.WrapError(domain.ErrIndexWriteFailed, "azsearch.write", fmt.Errorf("%s", message))
	}
	return nil
}

func (c *Client) execute(ctx context.Context, operation, path string, payload, out any) error {
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifySearchError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	url := fmt.Sprintf("%s/indexes/%s%s?api-version=%s", c.endpoint, c.indexName, path, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azsearch %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

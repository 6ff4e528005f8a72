// Package generator talks to the remote test generation service.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"testgen/internal/logging"
)

// maxErrorBody caps how much of a failed response is logged.
const maxErrorBody = 512

// Client posts submissions to a single configured endpoint.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new generator client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "testgen"
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		userAgent:  userAgent,
		httpClient: httpClient,
		log:        logging.For(cfg.Logger, logging.CategoryAPI),
	}
}

// Endpoint returns the URL submissions are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate sends one multipart request and returns the generated test cases.
// There is no retry; cancellation comes only from ctx.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Code == "" && req.File == nil {
		return nil, ErrEmptyRequest
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	requestID := uuid.NewString()
	log := c.log.With(zap.String("request_id", requestID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &TransportError{
			Kind:      KindNetwork,
			RequestID: requestID,
			Message:   err.Error(),
			Err:       ErrNetwork,
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	log.Debug("sending generation request",
		zap.String("endpoint", c.endpoint),
		zap.Bool("has_code", req.Code != ""),
		zap.Bool("has_file", req.File != nil))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("generation request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, &TransportError{
			Kind:      KindNetwork,
			RequestID: requestID,
			Message:   err.Error(),
			Err:       ErrNetwork,
		}
	}
	defer resp.Body.Close()

	log = log.With(zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("generation request rejected", zap.ByteString("body", excerpt))
		return nil, &TransportError{
			Kind:      KindStatus,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Message:   string(excerpt),
			Err:       ErrStatus,
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Warn("generation response undecodable", zap.Error(err))
		return nil, &TransportError{
			Kind:      KindDecode,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Message:   err.Error(),
			Err:       ErrDecode,
		}
	}
	if result.Text() == "" {
		log.Warn("generation response has no test cases")
		return nil, &TransportError{
			Kind:      KindEmpty,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Err:       ErrMissingField,
		}
	}

	result.RequestID = requestID
	log.Info("generation request succeeded", zap.Int("bytes", len(result.Text())))
	return &result, nil
}

// encodeForm writes the code and file parts that are present.
func encodeForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if req.Code != "" {
		if err := w.WriteField(FieldCode, req.Code); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", FieldCode, err)
		}
	}

	if req.File != nil {
		name := req.File.Name
		if name == "" {
			name = "upload"
		}
		part, err := w.CreateFormFile(FieldFile, name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(req.File.Content); err != nil {
			return nil, "", fmt.Errorf("failed to copy file content: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

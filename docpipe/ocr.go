// CLAUDE:SUMMARY HTTP client for the vision OCR service — base64 page image in, recognised text out.
package docpipe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OCRClient submits page images to a vision OCR service.
type OCRClient struct {
	endpoint string
	model    string
	http     *http.Client
}

// NewOCRClient creates a client for the OCR service at endpoint.
func NewOCRClient(endpoint, model string, timeout time.Duration) *OCRClient {
	return &OCRClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

type ocrRequest struct {
	Image  string `json:"image"` // base64
	Format string `json:"format"`
	Model  string `json:"model,omitempty"`
	Page   int    `json:"page"`
}

type ocrResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Error string `json:"error,omitempty"`
}

// Recognize runs OCR on one page image and returns the recognised text.
func (c *OCRClient) Recognize(ctx context.Context, image []byte, format string, page int) (string, error) {
	body, err := json.Marshal(ocrRequest{
		Image:  base64.StdEncoding.EncodeToString(image),
		Format: format,
		Model:  c.model,
		Page:   page,
	})
	if err != nil {
		return "", fmt.Errorf("marshal OCR request: %w", err)
	}

	url := c.endpoint + "/v1/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode OCR response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("OCR service: %s", result.Error)
	}
	return result.Text, nil
}

// Package loader consumes the page-extraction service. Decoding the PDF
// itself is the service's job; this client uploads the staged file and gets
// back ordered page-level text units.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrUnreadable covers corrupt or undecodable files: a DataError, not worth
// retrying with the same bytes.
var ErrUnreadable = errors.New("document unreadable")

// Page is one page-level text unit in document order.
type Page struct {
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
	TotalPages int    `json:"total_pages"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Load posts the staged file to the extraction service and returns its pages.
// Page order and numbering come from the service and are preserved as-is.
func (c *Client) Load(ctx context.Context, path string) ([]Page, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnreadable, filepath.Base(path), err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnreadable, filepath.Base(path), err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%w: service rejected %s", ErrUnreadable, filepath.Base(path))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader returned status %d", resp.StatusCode)
	}

	var out struct {
		Pages []Page `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode loader response: %w", err)
	}
	if len(out.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages extracted", ErrUnreadable)
	}

	// Fill in positional metadata the service may omit.
	total := len(out.Pages)
	for i := range out.Pages {
		if out.Pages[i].PageNumber == 0 {
			out.Pages[i].PageNumber = i + 1
		}
		if out.Pages[i].TotalPages == 0 {
			out.Pages[i].TotalPages = total
		}
	}
	return out.Pages, nil
}

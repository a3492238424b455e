// Package docsync provides a client for the document sync server: REST
// accessors plus a realtime editing session over websockets.
package docsync

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// DefaultURL is the server a client talks to when none is given.
const DefaultURL = "http://localhost:3001"

// Client is a document sync API client.
type Client struct {
	BaseURL    string
	Origin     string // sent on websocket handshakes
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docsync error %d: %s", e.Code, e.Message)
}

// doRequest performs a GET and decodes the JSON reply into out.
func (c *Client) doRequest(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &errResp)
		return &StatusError{Code: resp.StatusCode, Message: errResp.Error}
	}

	return json.Unmarshal(body, out)
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
	Timestamp string `json:"timestamp"`
}

// Health checks the server.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest("/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDocument fetches the current snapshot of a loaded document.
func (c *Client) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := c.doRequest("/api/documents/"+url.PathEscape(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentsResponse is one page of loaded documents.
type DocumentsResponse struct {
	Documents []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Version      int    `json:"version"`
		LastModified string `json:"last_modified"`
	} `json:"documents"`
	Total int `json:"total"`
}

// ListDocuments lists loaded documents, most recently modified first.
func (c *Client) ListDocuments(limit, offset int) (*DocumentsResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp DocumentsResponse
	if err := c.doRequest(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

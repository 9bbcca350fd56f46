// Package stylist is the HTTP client for the external try-on generation
// service. The service is a black box: a photo and ordered garment
// descriptors go in, a composited image comes out.
package stylist

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	model := opts.Model
	if model == "" {
		model = "atelier-tryon-1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
	}
}

type generateRequest struct {
	Model       string   `json:"model"`
	SourceImage string   `json:"source_image"`
	Garments    []string `json:"garments"`
}

type generateResponse struct {
	Image   string `json:"image"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate composites the garments onto the source image. Fragment order is
// preserved on the wire; the service layers them in that order.
func (c *Client) Generate(ctx context.Context, sourceImage []byte, promptFragments []string) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, errors.New("stylist client not configured")
	}
	if c.token == "" {
		return nil, errors.New("stylist: API key is missing")
	}
	if len(sourceImage) == 0 {
		return nil, errors.New("stylist: source image required")
	}
	if len(promptFragments) == 0 {
		return nil, errors.New("stylist: garment descriptors required")
	}

	payload := generateRequest{
		Model:       c.model,
		SourceImage: base64.StdEncoding.EncodeToString(sourceImage),
		Garments:    promptFragments,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tryon", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("stylist: http %d", resp.StatusCode)
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return nil, fmt.Errorf("stylist error: %s (%s)", out.Message, out.Code)
		}
		return nil, fmt.Errorf("stylist: http %d", resp.StatusCode)
	}
	if strings.TrimSpace(out.Image) == "" {
		return nil, errors.New("stylist: empty response")
	}
	image, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fmt.Errorf("stylist: decode image: %w", err)
	}
	return image, nil
}

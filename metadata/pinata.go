package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultPinataEndpoint = "https://api.pinata.cloud"

// PinataClient pins content through the Pinata pinning API.
type PinataClient struct {
	endpoint string
	apiKey   string
	secret   string
	client   *http.Client
}

// PinataOption customises a PinataClient.
type PinataOption func(*PinataClient)

// WithPinataEndpoint overrides the API base URL.
func WithPinataEndpoint(endpoint string) PinataOption {
	return func(p *PinataClient) {
		if trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/"); trimmed != "" {
			p.endpoint = trimmed
		}
	}
}

// WithPinataHTTPClient overrides the HTTP client used for uploads.
func WithPinataHTTPClient(client *http.Client) PinataOption {
	return func(p *PinataClient) {
		if client != nil {
			p.client = client
		}
	}
}

// NewPinataClient constructs a client authenticating with an API key pair.
func NewPinataClient(apiKey, secret string, opts ...PinataOption) (*PinataClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	secret = strings.TrimSpace(secret)
	if apiKey == "" || secret == "" {
		return nil, fmt.Errorf("metadata: pinata api key and secret required")
	}
	p := &PinataClient{
		endpoint: defaultPinataEndpoint,
		apiKey:   apiKey,
		secret:   secret,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type pinataOptions struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinFile uploads r as a multipart file named name.
func (p *PinataClient) PinFile(ctx context.Context, name string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("metadata: build form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("metadata: read %s: %w", name, err)
	}
	meta, err := json.Marshal(pinataOptions{Name: name})
	if err != nil {
		return "", err
	}
	if err := form.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("metadata: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("metadata: build form: %w", err)
	}
	return p.post(ctx, "/pinning/pinFileToIPFS", form.FormDataContentType(), body)
}

// PinJSON uploads v as a JSON document named name.
func (p *PinataClient) PinJSON(ctx context.Context, name string, v any) (string, error) {
	payload, err := json.Marshal(struct {
		Content  any           `json:"pinataContent"`
		Metadata pinataOptions `json:"pinataMetadata"`
	}{Content: v, Metadata: pinataOptions{Name: name}})
	if err != nil {
		return "", fmt.Errorf("metadata: encode %s: %w", name, err)
	}
	return p.post(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
}

func (p *PinataClient) post(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("pinata_api_key", p.apiKey)
	req.Header.Set("pinata_secret_api_key", p.secret)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata: pin request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("metadata: pin rejected: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("metadata: decode pin response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("metadata: pin response missing hash")
	}
	return out.IpfsHash, nil
}

package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/pkg/logger"
)

const (
	defaultBaseURL = "https://api.pinata.cloud"
	pinFilePath    = "/pinning/pinFileToIPFS"
	requestTimeout = 60 * time.Second
	maxRetries     = 3
)

// ErrMissingJWT is returned when the client has no API token
var ErrMissingJWT = errors.New("pinata JWT is not configured")

// Client pins files through the Pinata pinning API
type Client struct {
	jwt        string
	httpClient *http.Client
	baseURL    string
	backoff    time.Duration
	logger     *logger.Logger
}

// NewClient creates a Pinata client. baseURL may be empty for the public API.
func NewClient(jwt, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		jwt: jwt,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: time.Second,
		logger:  log.WithField("component", "pinata"),
	}
}

// SetBackoff overrides the initial rate-limit backoff (useful for testing)
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// Pin implements media.Pinner
func (c *Client) Pin(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if c.jwt == "" {
		return "", ErrMissingJWT
	}

	body, boundary, err := multipartBody(name, contentType, data)
	if err != nil {
		return "", err
	}

	respBody, err := c.doRequest(ctx, body, boundary)
	if err != nil {
		return "", fmt.Errorf("pinFileToIPFS failed: %w", err)
	}

	var resp PinResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to decode Pinata response: %w", err)
	}
	if resp.IpfsHash == "" {
		return "", errors.New("pinata response carried no IpfsHash")
	}

	c.logger.Info("file pinned", "name", name, "cid", resp.IpfsHash, "pin_size", resp.PinSize)
	return resp.IpfsHash, nil
}

func multipartBody(name, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	meta, err := json.Marshal(Metadata{Name: name})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// doRequest posts the upload, retrying with exponential backoff on 429 responses
func (c *Client) doRequest(ctx context.Context, body []byte, contentType string) ([]byte, error) {
	backoff := c.backoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.logger.Debug("API request", "path", pinFilePath, "attempt", attempt, "bytes", len(body))
		attemptStart := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pinFilePath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.jwt)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusOK {
			c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
			return respBody, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				c.logger.Error("rate limit exhausted", "attempts", maxRetries+1)
				return nil, &RateLimitError{
					RetryAfter: backoff,
					Message:    "Pinata API rate limit exceeded after retries",
				}
			}
			c.logger.Warn("rate limited, retrying", "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				continue
			}
		}

		c.logger.Error("API error", "status_code", resp.StatusCode)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil, errors.New("pinata API: exhausted retries")
}

var _ media.Pinner = (*Client)(nil)

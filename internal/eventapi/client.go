package eventapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oakmund/eventbook/internal/domain"
	"github.com/oakmund/eventbook/internal/version"
)

type ConnectionStatus string

const (
	StatusUnknown      ConnectionStatus = "unknown"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Client speaks the booking service's JSON-over-HTTP contract. A bearer
// token, once set, is attached to every request.
type Client struct {
	rc      *resty.Client
	baseURL string

	// streamClient has no timeout; the realtime stream is long-lived.
	streamClient *http.Client

	mu     sync.RWMutex
	token  string
	status ConnectionStatus
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   string

	// HTTPClient overrides the underlying transport, for tests.
	HTTPClient *http.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New()
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	}
	rc.SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", fmt.Sprintf("eventbook/%s", version.Version))

	c := &Client{
		rc:           rc,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		streamClient: opts.HTTPClient,
		token:        opts.Token,
		status:       StatusUnknown,
	}
	if c.streamClient == nil {
		c.streamClient = &http.Client{}
	}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if t := c.Token(); t != "" {
			r.SetAuthToken(t)
		}
		return nil
	})
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Status() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// check folds transport and HTTP-status failures into one error path.
// Transport errors mark the client disconnected and wrap
// domain.ErrRemoteUnavailable so read paths can fall back to cache.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		c.setStatus(StatusConnected)
		if resp.StatusCode() == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %s", op, errorMessage(resp))
	}
	c.setStatus(StatusConnected)
	return nil
}

// errorMessage pulls a human-readable message out of the service's error
// envelope, which uses either "message" or "error".
func errorMessage(resp *resty.Response) string {
	var envelope struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := unmarshalBody(resp.Body(), &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Err != "" {
			return envelope.Err
		}
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode())
}

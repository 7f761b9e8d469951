// Package webhook implements grabfile.Notifier by posting signed events to
// an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/grabfile"
)

// SignatureHeader carries the HMAC-SHA256 of the request body as
// "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Grabfile-Signature"

// Event types.
const (
	EventMessage = "message"
	EventFile    = "file"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// DefaultRetryDelays returns the waits between delivery attempts: 1s, 5s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 5 * time.Second}
}

// Event is the payload sent to the endpoint.
type Event struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Filename  string `json:"filename,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Ensure Notifier implements grabfile.Notifier.
var _ grabfile.Notifier = (*Notifier)(nil)

// Notifier delivers notifications synchronously with bounded retries.
// Delivery failures are logged and never returned.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSecret signs request bodies with secret.
func WithSecret(secret string) Option {
	return func(n *Notifier) {
		n.secret = secret
	}
}

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// WithRetryDelays sets the waits between attempts. An empty slice disables
// retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(n *Notifier) {
		n.delays = delays
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier creates a Notifier posting to url.
func NewNotifier(url string, opts ...Option) *Notifier {
	n := &Notifier{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
		delays: DefaultRetryDelays(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}
	return n
}

// Notify posts text as a JSON message event.
func (n *Notifier) Notify(ctx context.Context, text string) {
	event := &Event{Type: EventMessage, Text: text, Timestamp: n.now().Unix()}
	n.deliver(ctx, event, func() (io.Reader, string, error) {
		body, err := json.Marshal(event)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(body), "application/json", nil
	})
}

// NotifyFile posts the file at path as a multipart upload with the event
// in an "event" field and the content in a "file" field.
func (n *Notifier) NotifyFile(ctx context.Context, path, caption string) {
	event := &Event{Type: EventFile, Text: caption, Filename: filepath.Base(path), Timestamp: n.now().Unix()}
	n.deliver(ctx, event, func() (io.Reader, string, error) {
		return multipartBody(event, path)
	})
}

func (n *Notifier) deliver(ctx context.Context, event *Event, build func() (io.Reader, string, error)) {
	var err error
	for attempt := 0; attempt <= len(n.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				n.logger.Warn("webhook delivery abandoned", "event", event.Type, "err", ctx.Err())
				return
			case <-time.After(n.delays[attempt-1]):
			}
		}

		var body io.Reader
		var contentType string
		body, contentType, err = build()
		if err != nil {
			break
		}
		if err = n.post(ctx, body, contentType); err == nil {
			n.logger.Debug("webhook delivered", "event", event.Type, "attempt", attempt+1)
			return
		}
		n.logger.Warn("webhook delivery failed", "event", event.Type, "attempt", attempt+1, "err", err)
	}
	n.logger.Error("webhook delivery exhausted", "event", event.Type, "err", err)
}

func (n *Notifier) post(ctx context.Context, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "Grabfile-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, data))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func multipartBody(event *Event, path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("webhook: open attachment: %w", err)
	}
	defer f.Close()

	meta, err := json.Marshal(event)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("event", string(meta)); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", event.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("webhook: read attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

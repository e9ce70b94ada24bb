// Package webhook posts signed JSON payloads to a user-configured URL.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "X-Diary-Timestamp"
	HeaderSignature = "X-Diary-Signature"

	userAgent      = "diary-webhook/1"
	defaultTimeout = 10 * time.Second
)

// Payload is the top-level webhook POST body.
type Payload struct {
	Timestamp string        `json:"timestamp"`
	Channel   string        `json:"channel"`
	Items     []ItemPayload `json:"items"`
}

// ItemPayload is one delivered notification.
type ItemPayload struct {
	GroupID  string `json:"group_id,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	Summary  bool   `json:"summary,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deep_link,omitempty"`
}

// NewPayload wraps items for one channel, stamped now.
func NewPayload(channel string, items ...ItemPayload) Payload {
	return Payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Channel:   channel,
		Items:     items,
	}
}

// Sign computes the hex HMAC-SHA256 of "timestamp.body".
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value ("sha256=<hex>") in constant time.
func Verify(secret, timestamp string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(Sign(secret, timestamp, body)))
}

// Dispatcher posts payloads to one URL
type Dispatcher struct {
	URL    string
	Secret string
	HTTP   *http.Client
}

// NewDispatcher returns a dispatcher with a bounded HTTP client.
func NewDispatcher(url, secret string) *Dispatcher {
	return &Dispatcher{
		URL:    url,
		Secret: secret,
		HTTP:   &http.Client{Timeout: defaultTimeout},
	}
}

// Dispatch performs a synchronous POST. Returns nil on a 2xx status.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	if d.Secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+Sign(d.Secret, ts, body))
	}

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", d.URL, resp.StatusCode)
	}
	return nil
}

package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Notifier posts record payloads to a frontend webhook. Delivery is
// fire-and-forget with a bounded timeout: failures are logged and discarded,
// never surfaced to the request that triggered them.
type Notifier struct {
	URL    string
	client *http.Client
}

// NewNotifier returns a Notifier for the given webhook URL, or nil when no
// URL is configured.
func NewNotifier(url string, timeout time.Duration) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NotifyAsync delivers the payload in the background. A nil receiver is a no-op.
func (n *Notifier) NotifyAsync(payload map[string]interface{}) {
	if n == nil {
		return
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Webhook payload marshal failed: %v", err)
			return
		}
		resp, err := n.client.Post(n.URL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("Webhook delivery failed: %v", err)
			return
		}
		resp.Body.Close()
	}()
}

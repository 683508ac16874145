package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"trustmesh/engine/library"
)

// FetchError is returned when the mirror node answers a backfill with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("mirror REST %d for %s", e.StatusCode, e.URL)
}

func (c *Client) messagesURL(topic library.TopicID, limit int, order Order) string {
	return fmt.Sprintf("%s/api/v1/topics/%s/messages?limit=%d&order=%s", c.REST, url.PathEscape(topic), limit, order)
}

// Backfill fetches one page of up to limit messages and returns the ones that decode, in the
// order the mirror node sent them. Older history beyond the page is not read.
func (c *Client) Backfill(ctx context.Context, topic library.TopicID, limit int, order Order) ([]Decoded, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	u := c.messagesURL(topic, limit, order)
	c.Log.Info("REST backfill", library.Fields{"url": u})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building backfill request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode}
	}
	var page messagesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding backfill page: %w", err)
	}
	decoded := make([]Decoded, 0, len(page.Messages))
	for _, m := range page.Messages {
		if m.TopicID == "" {
			m.TopicID = topic
		}
		d, ok := Decode(m)
		if !ok {
			c.Log.Debug("dropping undecodable message", library.Fields{"seq": m.SequenceNumber, "ts": m.ConsensusTimestamp})
			continue
		}
		decoded = append(decoded, d)
	}
	c.Log.Info("backfill decoded", library.Fields{"decoded": len(decoded), "raw": len(page.Messages)})
	return decoded, nil
}

package poller

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
)

// Client is the signed HTTP client the polling surfaces fetch through.
// Requests carry the session HMAC headers the API's session middleware
// verifies.
type Client struct {
	baseURL   string
	sessionID string
	secret    []byte
	httpc     *http.Client
}

// NewClient builds a client for the given API base URL and session
// credentials. secretB64 is the base64 session secret issued at login.
func NewClient(baseURL, sessionID, secretB64 string) (*Client, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return nil, fmt.Errorf("poller client: decode session secret: %w", err)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		secret:    secret,
		httpc:     &http.Client{Timeout: FetchTimeout},
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("poller client: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(http.MethodGet + req.URL.Path + ts))
	req.Header.Set("X-Session-Id", c.sessionID)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("poller client: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("poller client: %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("poller client: %s: decode: %w", path, err)
	}
	return nil
}

// ConversationList fetches the caller's conversation list. The item id keys
// on the last message so an updated conversation reads as a new item.
func (c *Client) ConversationList(ctx context.Context) ([]Item, error) {
	var views []model.ConversationView
	if err := c.getJSON(ctx, "/api/conversations", nil, &views); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(views))
	for i := range views {
		v := &views[i]
		id := v.Conversation.ID
		if v.LastMessage != nil {
			id += ":" + v.LastMessage.ID
		}
		items = append(items, Item{ID: id, Payload: v})
	}
	return items, nil
}

// ActiveMessages returns a fetcher bound to one conversation, for the 2s
// surface while that conversation is open.
func (c *Client) ActiveMessages(conversationID string) FetchFunc {
	return func(ctx context.Context) ([]Item, error) {
		var msgs []model.Message
		path := "/api/conversations/" + conversationID + "/messages"
		if err := c.getJSON(ctx, path, nil, &msgs); err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(msgs))
		for i := range msgs {
			items = append(items, Item{ID: msgs[i].ID, Payload: &msgs[i]})
		}
		return items, nil
	}
}

// MessageNotifications fetches message-type notifications for the bell.
func (c *Client) MessageNotifications(ctx context.Context) ([]Item, error) {
	return c.notifications(ctx, url.Values{"type": {string(model.NotificationMessage)}})
}

// UnreadNotifications fetches unread notifications of any type for the
// generic count surface.
func (c *Client) UnreadNotifications(ctx context.Context) ([]Item, error) {
	return c.notifications(ctx, url.Values{"unread": {"true"}})
}

func (c *Client) notifications(ctx context.Context, query url.Values) ([]Item, error) {
	var notifs []model.Notification
	if err := c.getJSON(ctx, "/api/notifications", query, &notifs); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(notifs))
	for i := range notifs {
		items = append(items, Item{ID: notifs[i].ID, Payload: &notifs[i]})
	}
	return items, nil
}

// UnreadCount fetches the notification badge number directly.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.getJSON(ctx, "/api/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

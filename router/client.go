package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/convai/pkg/slogx"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
)

const (
	getUpdatesPath  = "getUpdates"
	sendMessagePath = "sendMessage"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// Client talks to a single bot on the router.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	// HTTPClient replaces the http.Client used for requests.
	HTTPClient = opts.ForName[Client, *http.Client]("http")
)

// Timeout sets the request timeout of the default http.Client.
func Timeout(d time.Duration) opts.Option[Client] {
	return opts.Type[Client](func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.http = &http.Client{Timeout: d}
		return nil
	})
}

// New creates a client for botID on the router at routerURL.
func New(routerURL, botID string, options ...opts.Option[Client]) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(routerURL, "/") + "/" + strings.Trim(botID, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	return c
}

// BaseURL returns the per-bot URL the endpoints are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetUpdates fetches every pending message for the bot.
func (c *Client) GetUpdates(ctx context.Context) ([]Update, error) {
	body, err := c.do(ctx, http.MethodGet, getUpdatesPath, nil)
	if err != nil {
		return nil, err
	}
	return ParseUpdates(body)
}

// SendMessage posts one reply to its chat.
func (c *Client) SendMessage(ctx context.Context, reply Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode reply for chat %s: %w", reply.ChatID, err)
	}
	slog.DebugContext(ctx, "sending message", slogx.Chat(reply.ChatID), slog.String("payload", string(payload)))
	_, err = c.do(ctx, http.MethodPost, sendMessagePath, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	url := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return data, nil
}

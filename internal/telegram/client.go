// Package telegram implements the outbound Bot API client.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ridebot/internal/config"
)

// ErrSendFailed is returned when the Bot API rejects a request.
var ErrSendFailed = errors.New("telegram send failed")

// Client talks to the Telegram Bot API. Sends are best effort: callers
// log failures and move on, they never retry inside the core.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Bot API client with a bounded request timeout.
func NewClient(cfg config.TelegramConfig) *Client {
	return &Client{
		token:      cfg.BotToken,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: cfg.APITimeout},
	}
}

// NewClientWithBase creates a client against an alternate API host.
// Used by tests to point at a local stub.
func NewClientWithBase(token, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{token: token, baseURL: baseURL, httpClient: httpClient}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send delivers a text message, optionally with a keyboard, and returns
// the id of the sent message.
func (c *Client) Send(ctx context.Context, chatID int64, text string, markup *Markup) (int64, error) {
	fields := url.Values{}
	fields.Set("chat_id", strconv.FormatInt(chatID, 10))
	fields.Set("text", text)
	if markup != nil {
		encoded, err := markup.encode()
		if err != nil {
			return 0, err
		}
		fields.Set("reply_markup", encoded)
	}

	resp, err := c.request(ctx, "sendMessage", fields)
	if err != nil {
		return 0, err
	}
	return resp.Result.MessageID, nil
}

// EditText rewrites a previously sent message and removes its inline
// keyboard, so stale buttons cannot be pressed again.
func (c *Client) EditText(ctx context.Context, chatID, messageID int64, text string) error {
	fields := url.Values{}
	fields.Set("chat_id", strconv.FormatInt(chatID, 10))
	fields.Set("message_id", strconv.FormatInt(messageID, 10))
	fields.Set("text", text)
	fields.Set("reply_markup", `{"inline_keyboard":[]}`)

	_, err := c.request(ctx, "editMessageText", fields)
	return err
}

// ClearKeyboard removes the inline keyboard of a message without
// touching its text. Fallback for when EditText is rejected.
func (c *Client) ClearKeyboard(ctx context.Context, chatID, messageID int64) error {
	fields := url.Values{}
	fields.Set("chat_id", strconv.FormatInt(chatID, 10))
	fields.Set("message_id", strconv.FormatInt(messageID, 10))
	fields.Set("reply_markup", `{"inline_keyboard":[]}`)

	_, err := c.request(ctx, "editMessageReplyMarkup", fields)
	return err
}

// SetCommands registers the bot command menu.
func (c *Client) SetCommands(ctx context.Context) error {
	commands := []map[string]string{
		{"command": "start", "description": "Open menu"},
		{"command": "menu", "description": "Open menu"},
		{"command": "newride", "description": "Start a new ride"},
		{"command": "mytrips", "description": "Show recent trips"},
		{"command": "help", "description": "How it works"},
	}

	encoded, err := json.Marshal(commands)
	if err != nil {
		return err
	}

	fields := url.Values{}
	fields.Set("commands", string(encoded))

	_, err = c.request(ctx, "setMyCommands", fields)
	return err
}

func (c *Client) request(ctx context.Context, method string, fields url.Values) (*apiResponse, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response: %v", ErrSendFailed, method, err)
	}

	if !resp.OK {
		return nil, fmt.Errorf("%w: %s: %s", ErrSendFailed, method, resp.Description)
	}

	return &resp, nil
}

// Package telegram wraps the Telegram Bot API with the narrow transport
// surface the bot core needs: long-poll update fetching with an explicit
// offset cursor, and text/photo sending.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TransportError reports a network or API failure on the Telegram transport.
// A fetch or send wrapped in a TransportError did not complete.
type TransportError struct {
	Op  string // "getUpdates", "sendMessage", "sendPhoto"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Update is one entry from getUpdates. Updates without a message payload
// carry a nil Message.
type Update struct {
	ID      int
	Message *Message
}

// Message is the inbound message record the bot core consumes.
type Message struct {
	ID       int
	ChatID   int64
	SenderID int64
	Text     string
	Photo    []PhotoSize
}

// PhotoSize describes one size variant of an attached photo.
type PhotoSize struct {
	FileID       string
	FileUniqueID string
	Width        int
	Height       int
}

// Client is a thin typed wrapper over the Telegram Bot API.
type Client struct {
	api            *tgbotapi.BotAPI
	logger         *slog.Logger
	requestTimeout time.Duration
}

// New creates a Telegram client against the public Bot API endpoint.
// requestTimeout bounds outbound send calls; the long-poll fetch is bounded
// by the server-side timeout and the caller's context instead.
func New(token string, requestTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}
	return newClient(api, requestTimeout, logger), nil
}

// NewWithEndpoint creates a Telegram client against a custom API endpoint,
// used by tests to point the client at a local server.
func NewWithEndpoint(token, endpoint string, httpClient *http.Client, requestTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}
	return newClient(api, requestTimeout, logger), nil
}

func newClient(api *tgbotapi.BotAPI, requestTimeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:            api,
		logger:         logger.With("component", "telegram"),
		requestTimeout: requestTimeout,
	}
}

// Username returns the bot's own username as reported by getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// FetchUpdates long-polls getUpdates starting at offset. timeout is the
// server-side hold in seconds; an empty batch after the hold is not an
// error. The call returns early when ctx is cancelled.
func (c *Client) FetchUpdates(ctx context.Context, offset, timeout int) ([]Update, error) {
	cfg := tgbotapi.UpdateConfig{Offset: offset, Timeout: timeout}

	type fetchResult struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan fetchResult, 1)
	go func() {
		updates, err := c.api.GetUpdates(cfg)
		ch <- fetchResult{updates: updates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, &TransportError{Op: "getUpdates", Err: res.err}
		}
		updates := make([]Update, 0, len(res.updates))
		for _, u := range res.updates {
			updates = append(updates, translateUpdate(u))
		}
		return updates, nil
	}
}

// SendText sends an HTML-formatted text message. Callers interpolating
// user-supplied text must escape it with EscapeHTML first.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return c.send(ctx, "sendMessage", msg)
}

// SendPhoto sends a photo by its Telegram file ID.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	return c.send(ctx, "sendPhoto", photo)
}

func (c *Client) send(ctx context.Context, op string, msg tgbotapi.Chattable) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	ch := make(chan error, 1)
	go func() {
		_, err := c.api.Send(msg)
		ch <- err
	}()

	select {
	case <-ctx.Done():
		return &TransportError{Op: op, Err: ctx.Err()}
	case err := <-ch:
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		return nil
	}
}

func translateUpdate(u tgbotapi.Update) Update {
	out := Update{ID: u.UpdateID}
	if u.Message == nil {
		return out
	}

	msg := &Message{
		ID:     u.Message.MessageID,
		ChatID: u.Message.Chat.ID,
		Text:   u.Message.Text,
	}
	if u.Message.From != nil {
		msg.SenderID = u.Message.From.ID
	}
	for _, p := range u.Message.Photo {
		msg.Photo = append(msg.Photo, PhotoSize{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Width:        p.Width,
			Height:       p.Height,
		})
	}
	out.Message = msg
	return out
}

// EscapeHTML escapes user-supplied text for HTML parse mode.
func EscapeHTML(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

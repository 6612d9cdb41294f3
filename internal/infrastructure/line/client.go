package line

import (
	"context"
	"errors"
	"net/http"
	"taskreminder/internal/pkg/logger"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// ErrMissingCredentials is returned when the channel secret or token is empty.
var ErrMissingCredentials = errors.New("CHANNEL_SECRET and CHANNEL_ACCESS_TOKEN must be set")

// Client wraps the linebot.Client.
type Client struct {
	*linebot.Client
	log logger.Logger
}

// NewClient creates a LINE Bot client. timeout bounds every API call made
// through it; per-call contexts may shorten it further.
func NewClient(channelSecret, channelToken string, timeout time.Duration, log logger.Logger) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, ErrMissingCredentials
	}

	bot, err := linebot.New(channelSecret, channelToken,
		linebot.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, err
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{
		Client: bot,
		log:    log,
	}, nil
}

// Send pushes a single text message to userID. It implements service.Messenger.
func (c *Client) Send(ctx context.Context, userID, text string) error {
	return c.PushMessages(ctx, userID, linebot.NewTextMessage(text))
}

// SendMessages sends one or more messages using the ReplyMessage API.
func (c *Client) SendMessages(replyToken string, messages ...linebot.SendingMessage) error {
	_, err := c.ReplyMessage(replyToken, messages...).Do()
	if err != nil {
		return err
	}
	c.log.Debug("Successfully sent reply message.")
	return nil
}

// PushMessages sends one or more messages using the PushMessage API.
func (c *Client) PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error {
	_, err := c.PushMessage(to, messages...).WithContext(ctx).Do()
	if err != nil {
		return err
	}
	c.log.Debug("Successfully sent push message.")
	return nil
}

// DisplayName returns the profile name of userID.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}

// ParseRequest parses and verifies incoming webhook requests.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.Client.ParseRequest(r)
}

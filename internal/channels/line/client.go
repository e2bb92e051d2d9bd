package line

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/wolfman30/spa-line-booking/internal/flow"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

const defaultHTTPTimeout = 10 * time.Second

// Client sends messages through the LINE Messaging API. It implements flow.Gateway.
type Client struct {
	api     *messaging_api.MessagingApiAPI
	logger  *logging.Logger
	metrics *metrics.FlowMetrics
}

type clientConfig struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.FlowMetrics
}

type ClientOption func(*clientConfig)

// WithEndpoint overrides the API base URL (useful for testing).
func WithEndpoint(endpoint string) ClientOption {
	return func(c *clientConfig) { c.endpoint = endpoint }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = hc }
}

func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = logger }
}

func WithMetrics(m *metrics.FlowMetrics) ClientOption {
	return func(c *clientConfig) { c.metrics = m }
}

// NewClient creates a Messaging API client for the channel access token.
func NewClient(accessToken string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{httpClient: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Default()
	}

	apiOpts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(cfg.httpClient)}
	if cfg.endpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(cfg.endpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(accessToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("line: create messaging api client: %w", err)
	}
	return &Client{api: api, logger: cfg.logger, metrics: cfg.metrics}, nil
}

// Reply answers an event using its reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs ...flow.Message) error {
	rendered := c.limit("reply", Render(msgs))
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   rendered,
	})
	c.observe("reply", err)
	if err != nil {
		return fmt.Errorf("line: reply message: %w", err)
	}
	return nil
}

// Push sends messages to a user without a reply token. Every call carries a
// fresh retry key so LINE can drop duplicates of the same request.
func (c *Client) Push(ctx context.Context, userID string, msgs ...flow.Message) error {
	rendered := c.limit("push", Render(msgs))
	_, err := c.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: rendered,
	}, uuid.NewString())
	c.observe("push", err)
	if err != nil {
		return fmt.Errorf("line: push message: %w", err)
	}
	return nil
}

// Profile fetches the display name and picture of a user who added the account.
func (c *Client) Profile(ctx context.Context, userID string) (*flow.Profile, error) {
	resp, err := c.api.WithContext(ctx).GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("line: get profile: %w", err)
	}
	return &flow.Profile{DisplayName: resp.DisplayName, PictureURL: resp.PictureUrl}, nil
}

func (c *Client) limit(kind string, msgs []messaging_api.MessageInterface) []messaging_api.MessageInterface {
	if len(msgs) <= maxMessagesPerCall {
		return msgs
	}
	c.logger.Warn("line: dropping messages over per-call limit", "kind", kind, "count", len(msgs))
	return msgs[:maxMessagesPerCall]
}

func (c *Client) observe(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveOutbound(kind, status)
}

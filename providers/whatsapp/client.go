package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-order-notify/core"
	"github.com/goliatone/go-order-notify/providers"
	"github.com/goliatone/go-order-notify/transport"
)

const (
	defaultAPIURL      = "https://graph.facebook.com"
	defaultAPIVersion  = "v17.0"
	defaultSendTimeout = 15 * time.Second
	defaultPingTimeout = 10 * time.Second
)

type textBody struct {
	Body string `json:"body"`
}

type messagePayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Client sends text messages to a single target phone through the WhatsApp
// Cloud API.
type Client struct {
	cfg  core.MessagingConfig
	rest *transport.RESTClient
}

// New wraps doer in a token bucket when the config sets a send rate.
func New(cfg core.MessagingConfig, doer transport.HTTPDoer) *Client {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}
	return &Client{
		cfg:  cfg,
		rest: transport.NewRESTClient(transport.NewThrottledDoer(doer, cfg.RatePerSecond, cfg.Burst)),
	}
}

func (c *Client) Send(ctx context.Context, text string) error {
	if err := c.configured(); err != nil {
		return err
	}
	payload, err := json.Marshal(messagePayload{
		MessagingProduct: "whatsapp",
		To:               strings.TrimSpace(c.cfg.TargetPhone),
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encode message: %w", err)
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     c.endpoint("/messages"),
		Headers: c.headers(map[string]string{"Content-Type": "application/json"}),
		Body:    payload,
		Timeout: c.cfg.SendTimeout,
	})
	if err != nil {
		return providers.CallFailed(core.DependencyMessaging, "send_message", err)
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return providers.UnexpectedStatus(core.DependencyMessaging, "send_message", res)
	}
	return nil
}

// Ping reads the phone number resource, which needs a valid token.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.configured(); err != nil {
		return err
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     c.endpoint(""),
		Headers: c.headers(nil),
		Timeout: c.cfg.PingTimeout,
	})
	if err != nil {
		return providers.CallFailed(core.DependencyMessaging, "ping", err)
	}
	if !res.IsSuccess() {
		return providers.UnexpectedStatus(core.DependencyMessaging, "ping", res)
	}
	return nil
}

func (c *Client) endpoint(suffix string) string {
	return c.cfg.APIURL + "/" + c.cfg.APIVersion + "/" + url.PathEscape(strings.TrimSpace(c.cfg.PhoneNumberID)) + suffix
}

func (c *Client) headers(extra map[string]string) map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + strings.TrimSpace(c.cfg.AccessToken),
	}
	for key, value := range extra {
		headers[key] = value
	}
	return headers
}

// configured reports the first missing setting. Ping checks the target phone
// too so a client that can never send is never reported online.
func (c *Client) configured() error {
	switch {
	case c == nil:
		return core.ConfigurationMissing(core.DependencyMessaging, "client")
	case strings.TrimSpace(c.cfg.AccessToken) == "":
		return core.ConfigurationMissing(core.DependencyMessaging, "access_token")
	case strings.TrimSpace(c.cfg.PhoneNumberID) == "":
		return core.ConfigurationMissing(core.DependencyMessaging, "phone_number_id")
	case strings.TrimSpace(c.cfg.TargetPhone) == "":
		return core.ConfigurationMissing(core.DependencyMessaging, "target_phone")
	}
	return nil
}

var _ core.Messenger = (*Client)(nil)

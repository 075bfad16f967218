package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-order-notify/core"
	"github.com/goliatone/go-order-notify/providers"
	"github.com/goliatone/go-order-notify/transport"
)

const (
	apiPrefix      = "/wp-json/wc/v3"
	statusFilter   = "processing"
	defaultTimeout = 30 * time.Second
)

type Option func(*Client)

func WithLogger(logger glog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client reads orders from the WooCommerce REST API. Credentials travel as
// consumer_key/consumer_secret query parameters.
type Client struct {
	cfg    core.CommerceConfig
	rest   *transport.RESTClient
	logger glog.Logger
}

func New(cfg core.CommerceConfig, doer transport.HTTPDoer, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	client := &Client{
		cfg:    cfg,
		rest:   transport.NewRESTClient(doer),
		logger: glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

func (c *Client) FetchRecentOrders(ctx context.Context, limit int) ([]core.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := c.get(ctx, "fetch_orders", "/orders", map[string]string{
		"per_page": strconv.Itoa(limit),
		"orderby":  "date",
		"order":    "desc",
		"status":   statusFilter,
	})
	if err != nil {
		return nil, err
	}
	result, err := core.DecodeOrders(res.Body)
	if err != nil {
		return nil, err
	}
	for _, rejected := range result.Rejected {
		c.logger.Warn("commerce order rejected", "error", rejected.Error())
	}
	return result.Orders, nil
}

func (c *Client) FetchOrderByID(ctx context.Context, id string) (core.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Order{}, core.MalformedUpstreamData(nil, "woocommerce: order id is required")
	}
	if err := c.configured(); err != nil {
		return core.Order{}, err
	}
	res, err := c.do(ctx, "fetch_order", "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return core.Order{}, err
	}
	if res.StatusCode == http.StatusNotFound {
		return core.Order{}, providers.NotFound(core.DependencyCommerce, "order", id)
	}
	if !res.IsSuccess() {
		return core.Order{}, providers.UnexpectedStatus(core.DependencyCommerce, "fetch_order", res)
	}
	return core.DecodeOrder(res.Body)
}

// Ping asks for a single product, the cheapest authenticated call.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/products", map[string]string{"per_page": "1"})
	return err
}

// Stats reads the number of processing orders from the X-WP-Total header.
func (c *Client) Stats(ctx context.Context) (core.CommerceStats, error) {
	res, err := c.get(ctx, "stats", "/orders", map[string]string{
		"per_page": "1",
		"status":   statusFilter,
	})
	if err != nil {
		return core.CommerceStats{}, err
	}
	total, err := strconv.Atoi(strings.TrimSpace(res.Header("X-WP-Total")))
	if err != nil {
		total = 0
	}
	return core.CommerceStats{ProcessingOrders: total}, nil
}

func (c *Client) get(ctx context.Context, operation string, path string, query map[string]string) (transport.Response, error) {
	if err := c.configured(); err != nil {
		return transport.Response{}, err
	}
	res, err := c.do(ctx, operation, path, query)
	if err != nil {
		return transport.Response{}, err
	}
	if !res.IsSuccess() {
		return transport.Response{}, providers.UnexpectedStatus(core.DependencyCommerce, operation, res)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, operation string, path string, query map[string]string) (transport.Response, error) {
	params := map[string]string{
		"consumer_key":    c.cfg.ConsumerKey,
		"consumer_secret": c.cfg.ConsumerSecret,
	}
	for key, value := range query {
		params[key] = value
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     c.cfg.BaseURL + apiPrefix + path,
		Query:   params,
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return transport.Response{}, providers.CallFailed(core.DependencyCommerce, operation, err)
	}
	return res, nil
}

func (c *Client) configured() error {
	switch {
	case c == nil:
		return core.ConfigurationMissing(core.DependencyCommerce, "client")
	case c.cfg.BaseURL == "":
		return core.ConfigurationMissing(core.DependencyCommerce, "base_url")
	case strings.TrimSpace(c.cfg.ConsumerKey) == "":
		return core.ConfigurationMissing(core.DependencyCommerce, "consumer_key")
	case strings.TrimSpace(c.cfg.ConsumerSecret) == "":
		return core.ConfigurationMissing(core.DependencyCommerce, "consumer_secret")
	}
	return nil
}

var (
	_ core.CommerceSource      = (*Client)(nil)
	_ core.CommerceStatsReader = (*Client)(nil)
)

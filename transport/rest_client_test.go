package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-order-notify/core"
)

func TestRESTClient_MergesQueryAndHeaders(t *testing.T) {
	var gotQuery, gotAuth, gotAccept, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotMethod = r.Method
		w.Header().Set("X-WP-Total", "7")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewRESTClient(server.Client())
	res, err := client.Do(context.Background(), Request{
		Method:  "post",
		URL:     server.URL + "/orders?order=desc",
		Query:   map[string]string{"per_page": "10", " ": "ignored"},
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %q", gotMethod)
	}
	if gotQuery != "order=desc&per_page=10" {
		t.Fatalf("expected merged query, got %q", gotQuery)
	}
	if gotAuth != "Bearer token" || gotAccept != "application/json" {
		t.Fatalf("expected request and default headers, got auth=%q accept=%q", gotAuth, gotAccept)
	}
	if !res.IsSuccess() || res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 success, got %d", res.StatusCode)
	}
	if res.Header("x-wp-total") != "7" {
		t.Fatalf("expected case-insensitive header lookup, got %q", res.Header("x-wp-total"))
	}
	if string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", res.Body)
	}
}

func TestRESTClient_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	client := NewRESTClient(server.Client())
	client.MaxResponseBodyBytes = 4

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorDependencyUnavailable {
		t.Fatalf("expected %q text code, got %q", core.ErrorDependencyUnavailable, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTClient_RequiresURL(t *testing.T) {
	_, err := NewRESTClient(nil).Do(context.Background(), Request{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", rich.TextCode)
	}
}

func TestRESTClient_NilClientReturnsInternalError(t *testing.T) {
	var client *RESTClient
	_, err := client.Do(context.Background(), Request{URL: "http://example.test"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.Code != http.StatusInternalServerError || rich.TextCode != core.ErrorInternal {
		t.Fatalf("expected internal error, got %d %q", rich.Code, rich.TextCode)
	}
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestRESTClient_RedactsCredentialsInErrors(t *testing.T) {
	client := NewRESTClient(failingDoer{})
	_, err := client.Do(context.Background(), Request{
		URL:   "https://shop.test/wp-json/wc/v3/orders",
		Query: map[string]string{"consumer_key": "ck_live", "consumer_secret": "cs_live"},
	})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	rawURL, _ := rich.Metadata["url"].(string)
	if strings.Contains(rawURL, "ck_live") || strings.Contains(rawURL, "cs_live") {
		t.Fatalf("expected credentials to be redacted, got %q", rawURL)
	}
	if !strings.Contains(rawURL, "consumer_key=REDACTED") {
		t.Fatalf("expected redacted marker, got %q", rawURL)
	}
}

func TestRESTClient_TimeoutAbortsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewRESTClient(server.Client()).Do(context.Background(), Request{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

type countingDoer struct {
	calls atomic.Int32
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
}

func TestThrottledDoer_DisabledReturnsNext(t *testing.T) {
	next := &countingDoer{}
	if doer := NewThrottledDoer(next, 0, 0); doer != HTTPDoer(next) {
		t.Fatalf("expected unthrottled doer to be returned as is")
	}
}

func TestThrottledDoer_WaitHonoursContext(t *testing.T) {
	next := &countingDoer{}
	doer := NewThrottledDoer(next, 0.001, 1)

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := doer.Do(req); err != nil {
		t.Fatalf("first request should use the burst token, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req, _ = http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test", nil)
	_, err := doer.Do(req)
	if err == nil {
		t.Fatalf("expected the second request to give up waiting")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit envelope, got %v", err)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("expected one forwarded request, got %d", next.calls.Load())
	}
}

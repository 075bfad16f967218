package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

// ThrottledDoer spaces outbound requests with a token bucket. A request
// whose context ends while waiting for a token is not sent.
type ThrottledDoer struct {
	next    HTTPDoer
	limiter *rate.Limiter
}

// NewThrottledDoer returns next unchanged when perSecond is not positive.
func NewThrottledDoer(next HTTPDoer, perSecond float64, burst int) HTTPDoer {
	if next == nil {
		next = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &ThrottledDoer{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *ThrottledDoer) Do(req *http.Request) (*http.Response, error) {
	if err := d.limiter.Wait(req.Context()); err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryRateLimit,
			"transport: outbound rate limit wait aborted",
			http.StatusTooManyRequests,
			map[string]any{"method": req.Method},
		)
	}
	return d.next.Do(req)
}

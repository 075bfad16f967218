package providers

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-order-notify/core"
	"github.com/goliatone/go-order-notify/transport"
)

const maxErrorBodyPreview = 256

// CallFailed reports a request that never produced a response.
func CallFailed(dependency core.Dependency, operation string, err error) error {
	if err == nil {
		return nil
	}
	return core.DependencyUnavailable(
		dependency,
		err,
		fmt.Sprintf("%s: %s failed: %v", dependency, operation, err),
	).WithMetadata(map[string]any{"operation": operation})
}

// UnexpectedStatus reports a response whose status the caller does not
// accept. A short body preview is kept for the system log.
func UnexpectedStatus(dependency core.Dependency, operation string, res transport.Response) error {
	message := fmt.Sprintf("%s: %s returned status %d", dependency, operation, res.StatusCode)
	if preview := bodyPreview(res.Body); preview != "" {
		message += ": " + preview
	}
	return core.DependencyUnavailable(dependency, nil, message).
		WithMetadata(map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
		})
}

// NotFound reports a missing upstream resource.
func NotFound(dependency core.Dependency, resource string, id string) error {
	return goerrors.New(fmt.Sprintf("%s: %s %s not found", dependency, resource, id), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.ErrorNotFound).
		WithMetadata(map[string]any{
			"dependency": dependency.String(),
			"id":         id,
		})
}

func bodyPreview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyPreview {
		text = text[:maxErrorBodyPreview] + "..."
	}
	return text
}

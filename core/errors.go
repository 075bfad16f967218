package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput              = "ORDER_NOTIFY_BAD_INPUT"
	ErrorNotFound              = "ORDER_NOTIFY_NOT_FOUND"
	ErrorDependencyUnavailable = "ORDER_NOTIFY_DEPENDENCY_UNAVAILABLE"
	ErrorStoreUnavailable      = "ORDER_NOTIFY_STORE_UNAVAILABLE"
	ErrorConfigurationMissing  = "ORDER_NOTIFY_CONFIGURATION_MISSING"
	ErrorMalformedUpstream     = "ORDER_NOTIFY_MALFORMED_UPSTREAM"
	ErrorShuttingDown          = "ORDER_NOTIFY_SHUTTING_DOWN"
	ErrorInternal              = "ORDER_NOTIFY_INTERNAL_ERROR"
)

const metadataKeyDependency = "dependency"

var ErrShuttingDown = errors.New("core: reconciler is shutting down")

// DependencyUnavailable reports a collaborator that is unreachable or
// answering with errors. Ledger failures carry the store text code.
func DependencyUnavailable(dependency Dependency, cause error, message string) *goerrors.Error {
	textCode := ErrorDependencyUnavailable
	if dependency == DependencyLedger {
		textCode = ErrorStoreUnavailable
	}
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return err.
		WithCode(http.StatusBadGateway).
		WithTextCode(textCode).
		WithMetadata(map[string]any{metadataKeyDependency: dependency.String()})
}

// ConfigurationMissing reports absent credentials. The dependency stays
// offline until the process restarts with a corrected configuration.
func ConfigurationMissing(dependency Dependency, field string) *goerrors.Error {
	field = strings.TrimSpace(field)
	return goerrors.New(dependency.String()+": "+field+" is not configured", goerrors.CategoryBadInput).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorConfigurationMissing).
		WithMetadata(map[string]any{
			metadataKeyDependency: dependency.String(),
			"field":               field,
		})
}

// MalformedUpstreamData reports a document that cannot be decoded into an
// order at all. Field level problems never produce it.
func MalformedUpstreamData(cause error, message string) *goerrors.Error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryValidation, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryValidation)
	}
	return err.
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(ErrorMalformedUpstream)
}

func IsConfigurationMissing(err error) bool {
	return hasTextCode(err, ErrorConfigurationMissing)
}

func IsDependencyUnavailable(err error) bool {
	return hasTextCode(err, ErrorDependencyUnavailable) || hasTextCode(err, ErrorStoreUnavailable)
}

func IsMalformedUpstreamData(err error) bool {
	return hasTextCode(err, ErrorMalformedUpstream)
}

// DependencyOf returns the dependency recorded on a taxonomy error.
func DependencyOf(err error) (Dependency, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil {
		return DependencyGeneric, false
	}
	raw, ok := rich.Metadata[metadataKeyDependency]
	if !ok {
		return DependencyGeneric, false
	}
	value, ok := raw.(string)
	if !ok {
		return DependencyGeneric, false
	}
	return ParseDependency(value), true
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil {
		return false
	}
	return rich.TextCode == textCode
}

// MapError normalizes any error into a go-errors envelope with an HTTP code
// and a text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	if errors.Is(err, ErrShuttingDown) {
		return ensureErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryOperation).
				WithCode(http.StatusServiceUnavailable).
				WithTextCode(ErrorShuttingDown),
		)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newError(err.Error(), goerrors.CategoryNotFound, ErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryExternal:
		return ErrorDependencyUnavailable
	default:
		return ErrorInternal
	}
}

func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

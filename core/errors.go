package core

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorNetwork      = "NETWORK_ERROR"
	ClientErrorBadInput     = "INVALID_REQUEST"
	ClientErrorAuthRequired = "AUTHENTICATION_REQUIRED"
	ClientErrorForbidden    = "PERMISSION_DENIED"
	ClientErrorNotFound     = "RESOURCE_NOT_FOUND"
	ClientErrorServer       = "SERVER_ERROR"
	ClientErrorHTTP         = "HTTP_ERROR"
	ClientErrorUnauthorized = "UNAUTHORIZED"
	ClientErrorRefresh      = "REFRESH_FAILED"
	ClientErrorChannel      = "CHANNEL_ERROR"
	ClientErrorMaxRetries   = "MAX_RETRIES_EXCEEDED"
	ClientErrorRateLimited  = "RATE_LIMITED"
	ClientErrorInternal     = "CLIENT_INTERNAL_ERROR"
)

const (
	networkErrorMessage = "Network error"
	fallbackHTTPMessage = "An error occurred"
)

// NormalizeTransportFailure maps a transport-level failure (no response
// received, including timeouts) to the single normalized network-error shape:
// status 0, NETWORK_ERROR, "Network error". The cause is preserved for
// unwrapping.
func NormalizeTransportFailure(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	normalized := goerrors.Wrap(err, goerrors.CategoryExternal, networkErrorMessage).
		WithTextCode(ClientErrorNetwork).
		WithMetadata(map[string]any{
			"status":    0,
			"retryable": true,
		})
	normalized.Code = 0
	return normalized
}

// NormalizeResponse maps a non-2xx response to the normalized error shape:
// the response status, the server-provided machine code and message when the
// body carries them, and status-derived defaults otherwise. The mapping is
// total; any body shape yields exactly one error.
func NormalizeResponse(res TransportResponse) *goerrors.Error {
	status := res.StatusCode
	code, message := parseErrorBody(res.Body)
	if code == "" {
		code = statusDefaultCode(status)
	}
	if message == "" {
		message = statusDefaultMessage(status)
	}

	normalized := goerrors.New(message, statusCategory(status)).
		WithCode(status).
		WithTextCode(code).
		WithMetadata(map[string]any{
			"status":    status,
			"retryable": RetryableStatus(status),
		})
	return normalized
}

// RetryableStatus reports whether a normalized status is safe to retry:
// transport failures (status 0), server errors (500), and throttling (429).
func RetryableStatus(status int) bool {
	switch status {
	case 0, http.StatusInternalServerError, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func statusDefaultMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusForbidden:
		return "Permission denied"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusInternalServerError:
		return "Server error"
	default:
		return fallbackHTTPMessage
	}
}

func statusDefaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ClientErrorBadInput
	case http.StatusUnauthorized:
		return ClientErrorAuthRequired
	case http.StatusForbidden:
		return ClientErrorForbidden
	case http.StatusNotFound:
		return ClientErrorNotFound
	case http.StatusTooManyRequests:
		return ClientErrorRateLimited
	case http.StatusInternalServerError:
		return ClientErrorServer
	default:
		return ClientErrorHTTP
	}
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == 0:
		return goerrors.CategoryExternal
	case status == http.StatusBadRequest:
		return goerrors.CategoryBadInput
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 500:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryOperation
	}
}

// parseErrorBody extracts the server's machine code and message from a
// failure envelope. Unparseable bodies return empty strings so the
// status-derived defaults apply.
func parseErrorBody(body []byte) (code string, message string) {
	if len(body) == 0 {
		return "", ""
	}
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	code = strings.TrimSpace(payload.Code)
	if code == "" {
		code = strings.TrimSpace(payload.Error.Code)
	}
	message = strings.TrimSpace(payload.Message)
	if message == "" {
		message = strings.TrimSpace(payload.Error.Message)
	}
	return code, message
}

// NewUnauthorizedError is the terminal authorization failure surfaced after
// a failed refresh cycle. The refresh failure is preserved as the cause.
func NewUnauthorizedError(cause error) *goerrors.Error {
	message := "Authentication required"
	var normalized *goerrors.Error
	if cause != nil {
		normalized = goerrors.Wrap(cause, goerrors.CategoryAuth, message)
	} else {
		normalized = goerrors.New(message, goerrors.CategoryAuth)
	}
	return normalized.
		WithCode(http.StatusUnauthorized).
		WithTextCode(ClientErrorUnauthorized).
		WithMetadata(map[string]any{"status": http.StatusUnauthorized, "retryable": false})
}

// NewRefreshError classifies a failed refresh exchange.
func NewRefreshError(cause error, message string) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "Credential refresh failed"
	}
	var normalized *goerrors.Error
	if cause != nil {
		normalized = goerrors.Wrap(cause, goerrors.CategoryAuth, message)
	} else {
		normalized = goerrors.New(message, goerrors.CategoryAuth)
	}
	return normalized.
		WithCode(http.StatusUnauthorized).
		WithTextCode(ClientErrorRefresh).
		WithMetadata(map[string]any{"status": http.StatusUnauthorized, "retryable": false})
}

// NewMaxRetriesError wraps the final attempt's error once the retry budget
// is exhausted. The last error stays reachable through Unwrap so callers
// inspect the original failure, never a replacement.
func NewMaxRetriesError(last error, attempts int) *goerrors.Error {
	return goerrors.Wrap(last, goerrors.CategoryOperation, "Retry attempts exhausted").
		WithTextCode(ClientErrorMaxRetries).
		WithMetadata(map[string]any{"attempts": attempts, "retryable": false})
}

// NewThrottledError reports a client-side throttle rejection raised before
// any exchange happens. wait hints when the bucket reopens.
func NewThrottledError(wait time.Duration) *goerrors.Error {
	return goerrors.New("Rate limited", goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(ClientErrorRateLimited).
		WithMetadata(map[string]any{
			"status":         http.StatusTooManyRequests,
			"retryable":      true,
			"retry_after_ms": wait.Milliseconds(),
		})
}

// NewChannelError classifies duplex-channel failures, terminal reconnect
// exhaustion included.
func NewChannelError(cause error, message string) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "Channel failure"
	}
	var normalized *goerrors.Error
	if cause != nil {
		normalized = goerrors.Wrap(cause, goerrors.CategoryExternal, message)
	} else {
		normalized = goerrors.New(message, goerrors.CategoryExternal)
	}
	return normalized.WithTextCode(ClientErrorChannel)
}

// IsUnauthorized reports whether err is the terminal authorization failure.
func IsUnauthorized(err error) bool {
	return errTextCode(err) == ClientErrorUnauthorized
}

// IsNetworkError reports whether err is a normalized transport failure.
func IsNetworkError(err error) bool {
	return errTextCode(err) == ClientErrorNetwork
}

// IsRefreshError reports whether err came from a failed refresh exchange.
func IsRefreshError(err error) bool {
	return errTextCode(err) == ClientErrorRefresh
}

// IsChannelError reports whether err is a duplex-channel failure.
func IsChannelError(err error) bool {
	return errTextCode(err) == ClientErrorChannel
}

// IsMaxRetries reports whether err wraps an exhausted retry budget.
func IsMaxRetries(err error) bool {
	return errTextCode(err) == ClientErrorMaxRetries
}

// IsRetryable reports whether a normalized error may be retried under the
// retry policy. Only errors the normalizer explicitly marked retryable
// qualify; everything else is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return false
	}
	if richErr.Metadata != nil {
		if flag, ok := richErr.Metadata["retryable"].(bool); ok {
			return flag
		}
	}
	return false
}

// StatusOf extracts the normalized HTTP status; 0 means no response reached
// the client, -1 means err carries no status at all.
func StatusOf(err error) int {
	if err == nil {
		return -1
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return -1
	}
	if richErr.Metadata != nil {
		switch value := richErr.Metadata["status"].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		}
	}
	return richErr.Code
}

// CodeOf extracts the normalized machine code, or "" when err is not a
// normalized error.
func CodeOf(err error) string {
	return errTextCode(err)
}

// MessageOf returns the normalized user-facing message, or the plain error
// text for errors outside the client taxonomy.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && strings.TrimSpace(richErr.Message) != "" {
		return richErr.Message
	}
	return err.Error()
}

func errTextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	return strings.TrimSpace(strings.ToUpper(richErr.TextCode))
}

// clientErrorMapper is the total mapper every outward-facing operation runs
// its failures through: rich errors keep their classification (envelope
// completed), transport failures normalize to NETWORK_ERROR, and anything
// else falls back to the library's default mapping.
func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return NormalizeTransportFailure(err)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return ensureClientErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryRateLimit, err.Error()).
				WithCode(429).
				WithTextCode(ClientErrorRateLimited).
				WithMetadata(map[string]any{"status": 429, "retryable": true}),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureClientErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
				WithTextCode(ClientErrorBadInput),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

// ensureClientErrorEnvelope completes a rich error's envelope: a status code
// derived from the category when none is set (network errors keep status 0),
// and a default text code for the category.
func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	textCode := strings.TrimSpace(strings.ToUpper(err.TextCode))
	if err.Code == 0 && textCode != ClientErrorNetwork {
		err.Code = clientHTTPStatus(err.Category)
	}
	if textCode == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = fallbackHTTPMessage
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryAuth:
		return ClientErrorAuthRequired
	case goerrors.CategoryAuthz:
		return ClientErrorForbidden
	case goerrors.CategoryNotFound:
		return ClientErrorNotFound
	case goerrors.CategoryRateLimit:
		return ClientErrorRateLimited
	case goerrors.CategoryExternal:
		return ClientErrorNetwork
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

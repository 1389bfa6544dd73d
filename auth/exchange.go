package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-florin/core"
)

const (
	defaultExchangeTimeout       = 10 * time.Second
	maxExchangeResponseBodyBytes = 1 << 20

	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	revokePath  = "/auth/logout"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ExchangeClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Logger         core.Logger
}

// ExchangeClient performs the credential exchanges against the Florin API:
// login, refresh, and revocation. It speaks HTTP directly rather than
// going through the request pipeline, since the pipeline's own 401
// handling depends on these calls. Every exchange is a single attempt;
// the refresh coordinator decides what a failure means.
type ExchangeClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient HTTPDoer
	logger     core.Logger
}

func NewExchangeClient(cfg ExchangeClientConfig) (*ExchangeClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, &ExchangeError{Operation: "configure", Message: "base url is required", Cause: ErrExchangeFailed}
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &ExchangeError{Operation: "configure", Message: "base url must be absolute", Cause: ErrExchangeFailed}
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &ExchangeClient{
		baseURL:    base,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     glog.Ensure(cfg.Logger),
	}, nil
}

type credentialPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *ExchangeClient) Login(ctx context.Context, email string, password string) (core.CredentialPair, error) {
	if c == nil || c.httpClient == nil {
		return core.CredentialPair{}, &ExchangeError{Operation: "login", Message: "http client is not configured", Cause: ErrExchangeFailed}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return core.CredentialPair{}, &ExchangeError{Operation: "login", Message: "email is required", Cause: ErrExchangeFailed}
	}
	if password == "" {
		return core.CredentialPair{}, &ExchangeError{Operation: "login", Message: "password is required", Cause: ErrExchangeFailed}
	}

	return c.exchangeCredentials(ctx, "login", loginPath, map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *ExchangeClient) ExchangeRefresh(ctx context.Context, refreshCredential string) (core.CredentialPair, error) {
	if c == nil || c.httpClient == nil {
		return core.CredentialPair{}, &ExchangeError{Operation: "refresh", Message: "http client is not configured", Cause: ErrExchangeFailed}
	}
	refreshCredential = strings.TrimSpace(refreshCredential)
	if refreshCredential == "" {
		return core.CredentialPair{}, &ExchangeError{Operation: "refresh", Message: "refresh credential is required", Cause: ErrExchangeFailed}
	}

	return c.exchangeCredentials(ctx, "refresh", refreshPath, map[string]string{
		"refreshToken": refreshCredential,
	})
}

func (c *ExchangeClient) Revoke(ctx context.Context, refreshCredential string) error {
	if c == nil || c.httpClient == nil {
		return &ExchangeError{Operation: "revoke", Message: "http client is not configured", Cause: ErrExchangeFailed}
	}
	refreshCredential = strings.TrimSpace(refreshCredential)
	if refreshCredential == "" {
		return &ExchangeError{Operation: "revoke", Message: "refresh credential is required", Cause: ErrExchangeFailed}
	}

	status, body, err := c.post(ctx, revokePath, map[string]string{
		"refreshToken": refreshCredential,
	})
	if err != nil {
		return &ExchangeError{Operation: "revoke", Message: "exchange request failed", Cause: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &ExchangeError{
			StatusCode: status,
			Operation:  "revoke",
			Message:    "revocation rejected",
			Cause:      core.NormalizeResponse(core.TransportResponse{StatusCode: status, Body: body}),
		}
	}
	c.logger.Debug("refresh credential revoked")
	return nil
}

func (c *ExchangeClient) exchangeCredentials(ctx context.Context, operation string, path string, payload map[string]string) (core.CredentialPair, error) {
	status, body, err := c.post(ctx, path, payload)
	if err != nil {
		return core.CredentialPair{}, &ExchangeError{Operation: operation, Message: "exchange request failed", Cause: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return core.CredentialPair{}, &ExchangeError{
			StatusCode: status,
			Operation:  operation,
			Message:    "exchange rejected",
			Cause:      core.NormalizeResponse(core.TransportResponse{StatusCode: status, Body: body}),
		}
	}

	envelope, decodeErr := core.DecodeEnvelope(body)
	if decodeErr != nil {
		return core.CredentialPair{}, &ExchangeError{StatusCode: status, Operation: operation, Message: "decode exchange response", Cause: decodeErr}
	}
	credentials, dataErr := core.DecodeData[credentialPayload](envelope)
	if dataErr != nil {
		return core.CredentialPair{}, &ExchangeError{StatusCode: status, Operation: operation, Message: "decode exchange payload", Cause: dataErr}
	}
	if strings.TrimSpace(credentials.AccessToken) == "" {
		return core.CredentialPair{}, &ExchangeError{StatusCode: status, Operation: operation, Message: "exchange response missing access credential", Cause: ErrExchangeFailed}
	}

	return core.CredentialPair{
		Access:  strings.TrimSpace(credentials.AccessToken),
		Refresh: strings.TrimSpace(credentials.RefreshToken),
	}, nil
}

func (c *ExchangeClient) post(ctx context.Context, path string, payload map[string]string) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxExchangeResponseBodyBytes+1))
	if readErr != nil {
		return response.StatusCode, nil, readErr
	}
	if int64(len(responseBody)) > maxExchangeResponseBodyBytes {
		return response.StatusCode, nil, &ExchangeError{
			StatusCode: response.StatusCode,
			Message:    "exchange response exceeds body limit",
			Cause:      ErrExchangeFailed,
		}
	}
	return response.StatusCode, responseBody, nil
}

var _ core.AuthClient = (*ExchangeClient)(nil)

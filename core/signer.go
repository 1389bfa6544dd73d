package core

import (
	"context"
	"errors"
	"strings"
)

// BearerCredentialSigner places the access credential in the Authorization
// header using the Bearer scheme. An empty credential leaves the request
// untouched so unauthenticated calls go out without the header.
type BearerCredentialSigner struct {
	// Header overrides the header name; defaults to Authorization.
	Header string
	// Scheme overrides the prefix; defaults to Bearer.
	Scheme string
}

func (s BearerCredentialSigner) Sign(ctx context.Context, req *TransportRequest, credential string) error {
	if req == nil {
		return errors.New("core: signer requires a request")
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil
	}
	header := strings.TrimSpace(s.Header)
	if header == "" {
		header = "Authorization"
	}
	scheme := strings.TrimSpace(s.Scheme)
	if scheme == "" {
		scheme = "Bearer"
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[header] = scheme + " " + credential
	return nil
}

var _ Signer = BearerCredentialSigner{}

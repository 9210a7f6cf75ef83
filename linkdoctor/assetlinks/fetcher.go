package assetlinks

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// maxBodySize caps how much of a response we keep. Real manifests are a few
// hundred bytes; anything near this limit is broken anyway.
const maxBodySize = 1 << 20

const defaultUserAgent = "linkdoctor/1.0 (Android App Links diagnostics)"

// ErrKind classifies a failed fetch so the analyzer can tell a DNS typo
// from an expired certificate.
type ErrKind string

const (
	ErrKindTimeout ErrKind = "timeout"
	ErrKindDNS     ErrKind = "dns"
	ErrKindTLS     ErrKind = "tls"
	ErrKindNetwork ErrKind = "network"
)

// FetchError wraps a transport failure with its classified kind.
type FetchError struct {
	Kind ErrKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the classified kind of a fetch error, ErrKindNetwork for
// anything unclassified.
func KindOf(err error) ErrKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrKindNetwork
}

// FetchResult is the terminal HTTP exchange, redirects not followed.
type FetchResult struct {
	StatusCode       int
	ContentType      string
	RedirectLocation string
	Body             string
}

// Fetcher retrieves a URL without following redirects. The verifier on the
// device refuses redirected manifests, so the diagnostic must see the
// original 3xx answer rather than its target.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// HTTPFetcher is the production Fetcher on net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: defaultUserAgent,
	}
}

func (r *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrKindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	started := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		kind := classifyFetchError(err)
		log.Debug().Str("url", url).Str("kind", string(kind)).Err(err).Msg("[Fetch] transport error")
		return nil, &FetchError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{Kind: classifyFetchError(err), Err: err}
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("[Fetch] done")

	return &FetchResult{
		StatusCode:       resp.StatusCode,
		ContentType:      resp.Header.Get("Content-Type"),
		RedirectLocation: resp.Header.Get("Location"),
		Body:             string(body),
	}, nil
}

func classifyFetchError(err error) ErrKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrKindDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrKindTimeout
	}

	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		authErr     x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) || errors.As(err, &hostErr) || errors.As(err, &certInvalid) {
		return ErrKindTLS
	}

	return ErrKindNetwork
}

package broker

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

// hopByHopHeaders lists the headers that apply only to a single transport
// hop and must never be forwarded, per RFC 7230 §6.1 plus the Proxy-*
// headers a client might send to the broker itself.
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Proxy-Authorization",
	"Keep-Alive",
	"Transfer-Encoding",
	"TE",
	"Trailer",
	"Upgrade",
}

func stripHopByHopHeaders(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
	// Connection may also list additional per-hop header names to strip.
	for _, name := range strings.Split(h.Get("Connection"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			h.Del(name)
		}
	}
}

// stripClientAuthHeaders removes every header the client-auth layer or the
// credential injector might read, so neither the broker's own client-auth
// secret nor a client-supplied credential for the upstream ever reaches the
// upstream service. This runs before injectAuth, which is the only thing
// allowed to set the injected auth header afterward.
func stripClientAuthHeaders(h http.Header, spec registry.ServiceSpec) {
	h.Del(clientTokenCustomHeader)
	h.Del(clientTokenAuthHeader)
	if spec.AuthHeader != "" {
		h.Del(spec.AuthHeader)
	}
	for _, extra := range spec.ExtraHeaders {
		h.Del(extra.Header)
	}
}

// buildUpstreamRequest constructs the outbound request for spec, preserving
// method, the tail path joined onto the upstream base, query string, and
// body, with hop-by-hop headers stripped from the inbound headers.
func buildUpstreamRequest(ctx context.Context, inbound *http.Request, spec registry.ServiceSpec, tailPath string) (*http.Request, error) {
	base, err := url.Parse(spec.Upstream)
	if err != nil {
		return nil, &apperror.UpstreamConnect{Service: spec.Name, Cause: err}
	}

	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + tailPath
	target.RawQuery = inbound.URL.RawQuery

	outbound, err := http.NewRequestWithContext(ctx, inbound.Method, target.String(), inbound.Body)
	if err != nil {
		return nil, &apperror.UpstreamConnect{Service: spec.Name, Cause: err}
	}
	outbound.Header = inbound.Header.Clone()
	stripHopByHopHeaders(outbound.Header)
	stripClientAuthHeaders(outbound.Header, spec)
	outbound.ContentLength = inbound.ContentLength
	outbound.Host = target.Host
	return outbound, nil
}

// forwardRequest sends outbound upstream and streams the response back onto
// w without buffering the body. The connect timeout applies only to
// establishing the TCP/TLS connection; once bytes start flowing, the
// original request's context governs cancellation so slow-but-live
// downloads aren't cut off by a short connect budget.
func forwardRequest(w http.ResponseWriter, outbound *http.Request, spec registry.ServiceSpec, transport http.RoundTripper) error {
	resp, err := transport.RoundTrip(outbound)
	if err != nil {
		if isConnectTimeout(err) {
			return &apperror.UpstreamTimeout{Service: spec.Name}
		}
		if errors.Is(err, context.Canceled) {
			return &apperror.UpstreamAbort{Service: spec.Name, Cause: err}
		}
		return &apperror.UpstreamConnect{Service: spec.Name, Cause: err}
	}
	defer resp.Body.Close()

	stripHopByHopHeaders(resp.Header)
	header := w.Header()
	for k, values := range resp.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := streamCopy(w, resp.Body); err != nil {
		return &apperror.UpstreamAbort{Service: spec.Name, Cause: err}
	}
	return nil
}

// streamCopy copies src to dst, flushing after every write when dst
// supports it so the caller sees a true stream rather than a
// buffered-then-flushed response.
func streamCopy(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := w.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, writeErr
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, readErr
		}
	}
}

func isConnectTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// newUpstreamTransport builds an http.Transport whose connect timeout is
// bounded by connectTimeout while leaving read/write on the request's
// context, matching spec's separation of connect-timeout from
// stream-duration.
func newUpstreamTransport(connectTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: 0,
		ForceAttemptHTTP2:     true,
	}
}

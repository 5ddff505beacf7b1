// Package httpclient builds the outbound HTTP client used by platform
// adapters. It refuses to reach loopback, private and link-local
// addresses unless told otherwise, checked both on the request URL and on
// every resolved IP at dial time.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/cadence/errors"
)

// MaxRedirects bounds redirect chains.
const MaxRedirects = 10

// ErrBlockedHost marks requests refused by address policy.
var ErrBlockedHost = errors.New("blocked host")

// Options tunes New.
type Options struct {
	// AllowPrivateHosts permits self-hosted endpoints on the local network.
	AllowPrivateHosts bool
}

// New returns an *http.Client with timeout and the address policy applied.
func New(timeout time.Duration, opts Options) *http.Client {
	client := &http.Client{Timeout: timeout}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= MaxRedirects {
			return errors.Newf("stopped after %d redirects", MaxRedirects)
		}
		if err := CheckURL(req.URL, opts); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if opts.AllowPrivateHosts {
		return client
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	client.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if isPrivateIP(ip) {
					return nil, errors.Mark(errors.Newf("private address %s for %s", ip, host), ErrBlockedHost)
				}
			}
			// Dial the checked address, not the name, so a second lookup cannot rebind it
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
		},
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return client
}

// CheckURL validates scheme and host of u against the policy.
func CheckURL(u *url.URL, opts Options) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Mark(errors.Newf("scheme %q not allowed", u.Scheme), ErrBlockedHost)
	}
	if u.User != nil {
		return errors.Mark(errors.New("URL carries credentials"), ErrBlockedHost)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.Mark(errors.New("URL missing hostname"), ErrBlockedHost)
	}
	if opts.AllowPrivateHosts {
		return nil
	}
	if isLocalhost(hostname) {
		return errors.Mark(errors.Newf("localhost %s", hostname), ErrBlockedHost)
	}
	if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
		return errors.Mark(errors.Newf("private address %s", hostname), ErrBlockedHost)
	}
	return nil
}

// ParseEndpoint parses raw and applies CheckURL.
func ParseEndpoint(raw string, opts Options) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %q", raw)
	}
	if err := CheckURL(u, opts); err != nil {
		return nil, err
	}
	return u, nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		// 0.0.0.0/8 and 240.0.0.0/4
		return ip4[0] == 0 || ip4[0] >= 240
	}
	// fec0::/10 site-local
	return ip[0] == 0xfe && ip[1]&0xc0 == 0xc0
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}

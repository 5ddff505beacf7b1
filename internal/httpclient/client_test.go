package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		opts    Options
		blocked bool
	}{
		{"public https", "https://bsky.social", Options{}, false},
		{"public http", "http://pds.example.com:2583", Options{}, false},
		{"localhost", "http://localhost:2583", Options{}, true},
		{"localhost subdomain", "http://pds.localhost", Options{}, true},
		{"loopback ip", "http://127.0.0.1:8080", Options{}, true},
		{"rfc1918", "https://192.168.1.20", Options{}, true},
		{"link local", "http://169.254.169.254/latest/meta-data", Options{}, true},
		{"ipv6 loopback", "http://[::1]:80", Options{}, true},
		{"ipv6 ula", "http://[fd00::1]", Options{}, true},
		{"credentials", "https://user:pw@bsky.social", Options{}, true},
		{"scheme", "ftp://bsky.social", Options{}, true},
		{"no host", "https://", Options{}, true},
		{"private allowed", "http://192.168.1.20:2583", Options{AllowPrivateHosts: true}, false},
		{"scheme still checked", "file:///etc/passwd", Options{AllowPrivateHosts: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEndpoint(tt.raw, tt.opts)
			if tt.blocked {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBlockedHost), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	for _, s := range []string{"10.1.2.3", "172.16.0.1", "0.1.2.3", "224.0.0.1", "255.255.255.255", "fe80::1", "fec0::1"} {
		assert.True(t, isPrivateIP(net.ParseIP(s)), s)
	}
	for _, s := range []string{"8.8.8.8", "104.16.0.1", "2606:4700::1111"} {
		assert.False(t, isPrivateIP(net.ParseIP(s)), s)
	}
}

func TestNew_DialRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := New(time.Second, Options{}).Get(srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockedHost), "got %v", err)

	resp, err := New(time.Second, Options{AllowPrivateHosts: true}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestNew_RedirectIntoPrivateBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/hop" {
			http.Redirect(w, r, "http://localhost/", http.StatusFound)
		}
	}))
	defer srv.Close()

	client := New(time.Second, Options{AllowPrivateHosts: true})
	// The origin is allowed; the policy on the redirect target is what is under test
	client.CheckRedirect = New(time.Second, Options{}).CheckRedirect

	_, err := client.Get(srv.URL + "/hop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect blocked")
}

package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/httpclient"
)

// fakePDS serves the two XRPC procedures the publisher uses.
type fakePDS struct {
	sessions   atomic.Int32
	failRecord atomic.Bool
	lastText   atomic.Value
}

func (f *fakePDS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/xrpc/com.atproto.server.createSession":
		f.sessions.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"accessJwt":  "access",
			"refreshJwt": "refresh",
			"handle":     "shop.test",
			"did":        "did:plc:shop",
		})
	case "/xrpc/com.atproto.repo.createRecord":
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "AuthRequired"})
			return
		}
		if f.failRecord.Load() {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "InvalidRequest", "message": "rejected"})
			return
		}
		var body struct {
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastText.Store(body.Record.Text)
		json.NewEncoder(w).Encode(map[string]string{
			"uri": "at://did:plc:shop/app.bsky.feed.post/3kabc",
			"cid": "bafyrei",
		})
	default:
		http.NotFound(w, r)
	}
}

func TestBluesky_Publish(t *testing.T) {
	pds := &fakePDS{}
	srv := httptest.NewServer(pds)
	defer srv.Close()

	b := NewBluesky(BlueskyOptions{Host: srv.URL, Handle: "shop.test", AppPassword: "app-pass"})

	text := strings.Repeat("glow ", 100)
	receipt, err := b.Publish(context.Background(), Post{ArtifactID: "art_1", Text: text})
	require.NoError(t, err)

	assert.Equal(t, "at://did:plc:shop/app.bsky.feed.post/3kabc", receipt.ID)
	assert.Equal(t, "https://bsky.app/profile/did:plc:shop/post/3kabc", receipt.URL)

	sent := pds.lastText.Load().(string)
	assert.Equal(t, BlueskyPostLimit, utf8.RuneCountInString(sent))
	assert.True(t, strings.HasSuffix(sent, "…"))

	_, err = b.Publish(context.Background(), Post{ArtifactID: "art_2", Text: "short"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), pds.sessions.Load(), "session is reused")
}

func TestBluesky_FailureDropsSession(t *testing.T) {
	pds := &fakePDS{}
	srv := httptest.NewServer(pds)
	defer srv.Close()

	b := NewBluesky(BlueskyOptions{Host: srv.URL, Handle: "shop.test", AppPassword: "app-pass"})

	pds.failRecord.Store(true)
	_, err := b.Publish(context.Background(), Post{ArtifactID: "art_1", Text: "hi"})
	assert.True(t, errors.IsAdapterError(err), "got %v", err)

	pds.failRecord.Store(false)
	_, err = b.Publish(context.Background(), Post{ArtifactID: "art_1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), pds.sessions.Load())
}

func TestBluesky_PrivateHostRefused(t *testing.T) {
	pds := &fakePDS{}
	srv := httptest.NewServer(pds)
	defer srv.Close()

	b := NewBluesky(BlueskyOptions{
		Host: srv.URL, Handle: "shop.test", AppPassword: "app-pass",
		HTTPClient: httpclient.New(time.Second, httpclient.Options{}),
	})
	_, err := b.Publish(context.Background(), Post{ArtifactID: "art_1", Text: "hi"})
	assert.True(t, errors.IsAdapterError(err), "got %v", err)
	assert.Zero(t, pds.sessions.Load())

	b = NewBluesky(BlueskyOptions{
		Host: srv.URL, Handle: "shop.test", AppPassword: "app-pass",
		HTTPClient: httpclient.New(time.Second, httpclient.Options{AllowPrivateHosts: true}),
	})
	_, err = b.Publish(context.Background(), Post{ArtifactID: "art_1", Text: "hi"})
	require.NoError(t, err)
}

func TestWebURL(t *testing.T) {
	assert.Equal(t, "https://bsky.app/profile/did:plc:x/post/abc", webURL("at://did:plc:x/app.bsky.feed.post/abc"))
	assert.Empty(t, webURL("at://did:plc:x/app.bsky.graph.follow/abc"))
	assert.Empty(t, webURL("https://example.com"))
}

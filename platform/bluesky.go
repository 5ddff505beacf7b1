package platform

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"golang.org/x/time/rate"

	"github.com/teranos/cadence/errors"
)

// BlueskyPostLimit is the longest post text the network accepts.
const BlueskyPostLimit = 300

// BlueskyOptions configures the Bluesky publisher.
type BlueskyOptions struct {
	Host              string // PDS URL, e.g. https://bsky.social
	Handle            string
	AppPassword       string
	RequestsPerMinute int // 0 = unlimited
	// HTTPClient carries XRPC calls; nil uses the xrpc default client.
	HTTPClient *http.Client
}

// Bluesky publishes posts as app.bsky.feed.post records. The session is
// created lazily and dropped after a failed call so the next call
// re-authenticates.
type Bluesky struct {
	opts    BlueskyOptions
	limiter *rate.Limiter
	now     func() time.Time

	mu     sync.Mutex
	client *xrpc.Client
}

// NewBluesky creates a Bluesky publisher.
func NewBluesky(opts BlueskyOptions) *Bluesky {
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}
	return &Bluesky{
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Publish creates the post record.
func (b *Bluesky) Publish(ctx context.Context, post Post) (Receipt, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return Receipt{}, errors.NewAdapterFailure(errors.Wrap(err, "bluesky rate limit wait"))
	}

	client, err := b.session(ctx)
	if err != nil {
		return Receipt{}, errors.NewAdapterFailure(err)
	}

	postedAt := b.now()
	record := &appbsky.FeedPost{
		Text:      truncateRunes(post.Text, BlueskyPostLimit),
		CreatedAt: postedAt.UTC().Format(time.RFC3339),
	}

	resp, err := comatproto.RepoCreateRecord(ctx, client, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       client.Auth.Did,
		Record:     &util.LexiconTypeDecoder{Val: record},
	})
	if err != nil {
		b.dropSession()
		return Receipt{}, errors.NewAdapterFailure(errors.Wrapf(err, "failed to create post for %s", post.ArtifactID))
	}

	return Receipt{ID: resp.Uri, URL: webURL(resp.Uri), PostedAt: postedAt}, nil
}

// session returns the authenticated client, creating a session if needed.
func (b *Bluesky) session(ctx context.Context) (*xrpc.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	client := &xrpc.Client{Host: b.opts.Host, Client: b.opts.HTTPClient}
	session, err := comatproto.ServerCreateSession(ctx, client, &comatproto.ServerCreateSession_Input{
		Identifier: b.opts.Handle,
		Password:   b.opts.AppPassword,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create session with PDS %s for %s", b.opts.Host, b.opts.Handle)
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}
	b.client = client
	return client, nil
}

func (b *Bluesky) dropSession() {
	b.mu.Lock()
	b.client = nil
	b.mu.Unlock()
}

// webURL maps at://<did>/app.bsky.feed.post/<rkey> to its bsky.app page.
func webURL(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "app.bsky.feed.post" {
		return ""
	}
	return "https://bsky.app/profile/" + parts[0] + "/post/" + parts[2]
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

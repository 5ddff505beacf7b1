// Package platform adapts external publishing platforms and engagement
// sources behind small interfaces.
//
// Publishers report every failure as errors.ErrAdapterFailure or
// errors.ErrAdapterTimeout. Callers treat both as transient: the artifact
// stays eligible for the next attempt.
package platform

import (
	"context"
	"time"

	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
)

// Post is what gets published.
type Post struct {
	ArtifactID string
	Text       string
}

// Receipt identifies a published post on the platform.
type Receipt struct {
	ID       string    `json:"id"`
	URL      string    `json:"url,omitempty"`
	PostedAt time.Time `json:"posted_at"`
}

// Publisher sends a post to a platform.
type Publisher interface {
	Publish(ctx context.Context, post Post) (Receipt, error)
}

// Engagement is the counters observed for one posted artifact.
type Engagement struct {
	Views    int64
	Likes    int64
	Shares   int64
	Comments int64
}

// EngagementSource reads counters for a posted artifact.
type EngagementSource interface {
	Fetch(ctx context.Context, a *content.Artifact) (Engagement, error)
}

// PostFor renders the post for an artifact.
func PostFor(a *content.Artifact) Post {
	return Post{ArtifactID: a.ID, Text: a.Description()}
}

// CallWithTimeout runs p.Publish bounded by timeout. A publisher that
// ignores its context is abandoned at the deadline; the result is
// ErrAdapterTimeout either way. Errors that are not already adapter errors
// are marked ErrAdapterFailure.
func CallWithTimeout(ctx context.Context, p Publisher, post Post, timeout time.Duration) (Receipt, error) {
	if timeout <= 0 {
		r, err := p.Publish(ctx, post)
		return mapPublishResult(ctx, r, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		receipt Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := p.Publish(ctx, post)
		done <- result{r, err}
	}()

	select {
	case r := <-done:
		return mapPublishResult(ctx, r.receipt, r.err)
	case <-ctx.Done():
		return Receipt{}, timeoutError(ctx, timeout)
	}
}

func mapPublishResult(ctx context.Context, receipt Receipt, err error) (Receipt, error) {
	if err == nil {
		return receipt, nil
	}
	if errors.IsAdapterError(err) {
		return Receipt{}, err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return Receipt{}, errors.Wrap(errors.Mark(err, errors.ErrAdapterTimeout), "publish deadline exceeded")
	}
	return Receipt{}, errors.NewAdapterFailure(err)
}

func timeoutError(ctx context.Context, timeout time.Duration) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrapf(errors.ErrAdapterTimeout, "publish exceeded %s", timeout)
	}
	return errors.NewAdapterFailure(errors.Wrap(ctx.Err(), "publish cancelled"))
}

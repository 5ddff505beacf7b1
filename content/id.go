package content

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/teranos/cadence/errors"
)

// IDPrefix marks artifact identifiers.
const IDPrefix = "art_"

var (
	entropyOnce sync.Once
	entropyMu   sync.Mutex
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// NewID returns an art_* ULID. IDs minted in the same millisecond are
// strictly increasing. Times before the Unix epoch or past the ULID range
// are rejected.
func NewID(at time.Time) (string, error) {
	if at.Before(time.Unix(0, 0)) || at.After(ulid.Time(ulid.MaxTime())) {
		return "", errors.NewInvalidConfigError("generated_at %s outside the id range", at.Format(time.RFC3339))
	}

	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(at), newEntropy())
	entropyMu.Unlock()
	if err != nil {
		return "", errors.Wrapf(err, "failed to mint id for %s", at.Format(time.RFC3339))
	}
	return IDPrefix + strings.ToLower(id.String()), nil
}

// IsValidID reports whether value is an art_* ULID.
func IsValidID(value string) bool {
	if !strings.HasPrefix(value, IDPrefix) {
		return false
	}
	_, err := ParseID(value)
	return err == nil
}

// ParseID strips the art_ prefix and returns the ULID.
func ParseID(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, IDPrefix)
	return ulid.ParseStrict(strings.ToUpper(value))
}

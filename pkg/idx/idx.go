// Package idx generates the lexicographically sortable identifiers used for
// every persisted record (accounts, roles, modules, permission cells and
// activity entries).
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero is the empty ID. Treat it as "unset", never as a real key.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	once    sync.Once
	entropy *ulid.MonotonicEntropy
)

// New returns a new ULID-based ID stamped with the current UTC time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt generates an ID at the provided time. IDs generated within the same
// millisecond stay strictly increasing.
func NewAt(t time.Time) ID {
	once.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	mu.Lock()
	defer mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse validates s as a canonical ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}

	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}

	return ID(s), nil
}

// Valid reports whether s parses as an ID. Handlers use it to reject path
// parameters before they reach the store.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (id ID) IsZero() bool { return id == Zero }

func (id ID) String() string { return string(id) }

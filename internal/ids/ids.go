package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PublicAlphabet is the character set of externally visible identifiers.
const PublicAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// PublicLength is the length of user and address ids handed to clients.
const PublicLength = 30

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)

	alphabetSize = big.NewInt(int64(len(PublicAlphabet)))
)

// New returns a lexicographically sortable identifier for row keys.
// Row keys never leave the service; see Public for client-facing ids.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Public returns an n-character identifier drawn uniformly from
// PublicAlphabet using crypto/rand.
func Public(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("ids: invalid length %d", n)
	}
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("ids: read entropy: %w", err)
		}
		buf[i] = PublicAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// UserID returns a fresh public user id.
func UserID() (string, error) { return Public(PublicLength) }

// AddressID returns a fresh public address id.
func AddressID() (string, error) { return Public(PublicLength) }

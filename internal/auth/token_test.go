package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(testSecret, WithCodecClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return c
}

func TestTokenRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	for _, subject := range []string{"a@b.com", "UPPER@example.org", "ünïcode@example.com"} {
		token, exp, err := codec.Encode(subject, DefaultTokenTTL)
		if err != nil {
			t.Fatalf("Encode(%q): %v", subject, err)
		}
		if want := clock.t.Add(864000 * time.Second); !exp.Equal(want) {
			t.Fatalf("expiry=%v, want %v", exp, want)
		}
		claims, err := codec.Decode(token)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if claims.Subject != subject {
			t.Fatalf("subject=%q, want %q", claims.Subject, subject)
		}
		if !claims.ExpiresAt.Equal(exp) {
			t.Fatalf("claims expiry=%v, want %v", claims.ExpiresAt, exp)
		}
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	// exp = now - 1s
	clock.t = clock.t.Add(-10 * time.Second)
	stale, _, err := codec.Encode("a@b.com", 9*time.Second)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	clock.t = clock.t.Add(10 * time.Second)
	if _, err := codec.Decode(stale); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// exp = now + 1h
	fresh, _, err := codec.Encode("a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(fresh); err != nil {
		t.Fatalf("expected fresh token to decode, got %v", err)
	}

	// now == exp is already expired
	clock.t = clock.t.Add(time.Hour)
	if _, err := codec.Decode(fresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}
}

func TestTokenTamperEveryByte(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)
	token, _, err := codec.Encode("a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		repl := byte('A')
		if token[i] == 'A' {
			repl = 'B'
		}
		tampered := token[:i] + string(repl) + token[i+1:]
		if _, err := codec.Decode(tampered); !errors.Is(err, ErrTokenInvalidSignature) {
			t.Fatalf("byte %d: expected ErrTokenInvalidSignature, got %v", i, err)
		}
	}
}

func TestTokenWrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)
	other, err := NewTokenCodec([]byte(strings.Repeat("z", 64)), WithCodecClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := other.Encode("a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("expected ErrTokenInvalidSignature, got %v", err)
	}
}

func TestTokenOtherAlgorithmRejected(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	claims := jwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Decode(hs256); !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("HS256 token: expected ErrTokenInvalidSignature, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := codec.Decode(none); err == nil {
		t.Fatal("unsigned token must not decode")
	}
}

func TestTokenSurroundingWhitespace(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)
	token, _, err := codec.Encode("a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	claims, err := codec.Decode(" \t" + token + "\n")
	if err != nil {
		t.Fatalf("Decode with padding: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("subject=%q", claims.Subject)
	}
}

func TestTokenMalformed(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Unix(1_700_000_000, 0)})
	for _, raw := range []string{"", "abc", "a.b", "a..c", "not.a.jwt", "a.b.c.d", "***.***.***"} {
		if _, err := codec.Decode(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("Decode(%q): expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}

func TestTokenMissingExpiryIsMalformed(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Unix(1_700_000_000, 0)})
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "a@b.com"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Decode(raw); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestEncodeValidatesInput(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Unix(1_700_000_000, 0)})
	if _, _, err := codec.Encode(" ", time.Hour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty subject, got %v", err)
	}
	if _, _, err := codec.Encode("a@b.com", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero ttl, got %v", err)
	}
}

func TestDecodeSecret(t *testing.T) {
	if _, err := DecodeSecret(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := DecodeSecret("!!!"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := DecodeSecret("c2hvcnQ="); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short secret rejected, got %v", err)
	}
	secret, err := DecodeSecret("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	if err != nil {
		t.Fatalf("DecodeSecret: %v", err)
	}
	if string(secret) != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("unexpected secret %q", secret)
	}
	if _, err := NewTokenCodec(secret[:10]); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short secret rejected by codec, got %v", err)
	}
}

func TestTokenFailureReason(t *testing.T) {
	cases := map[error]string{
		ErrTokenExpired:          "expired",
		ErrTokenInvalidSignature: "invalid_signature",
		ErrTokenMalformed:        "malformed",
		ErrPrincipalNotFound:     "principal_not_found",
		errors.New("boom"):       "other",
	}
	for err, want := range cases {
		if got := TokenFailureReason(err); got != want {
			t.Fatalf("TokenFailureReason(%v)=%q, want %q", err, got, want)
		}
	}
}

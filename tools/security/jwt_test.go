package security

import (
	"testing"
	"time"

	"ChatRelay/tools/errs"

	"github.com/pkg/errors"
)

var testOpts = DefaultOptions([]byte("test-secret"))

func TestGenerateVerifyRoundtrip(t *testing.T) {
	token, exp, err := Generate(testOpts, "u-1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}
	claims, err := Verify(testOpts, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiJ9.e30.invalidsig",
	}
	for _, tok := range cases {
		if _, err := Verify(testOpts, tok); !errors.Is(err, errs.ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(testOpts, "u-1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	other := DefaultOptions([]byte("other-secret"))
	if _, err := Verify(other, token); !errors.Is(err, errs.ErrInvalidToken) {
		t.Fatalf("wrong secret accepted: %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	opts := testOpts
	opts.TTL = -time.Minute
	token, _, err := Generate(opts, "u-1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Verify(testOpts, token); !errors.Is(err, errs.ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

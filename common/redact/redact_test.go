package redact_test

import (
	"errors"
	"testing"

	"github.com/knifekeroppi/memoria/common/redact"
)

func TestString_RedactsSensitiveValues(t *testing.T) {
	secret := "syt_bWVtb3JpYQ_token"
	line := "GET /_matrix/client/v3/sync?access_token=syt_bWVtb3JpYQ_token failed"
	got := redact.String(line, secret)
	want := "GET /_matrix/client/v3/sync?access_token=[REDACTED] failed"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestString_SkipsShortValues(t *testing.T) {
	line := "abc token"
	if got := redact.String(line, "abc"); got != line {
		t.Fatalf("short value should not be redacted; got %q", got)
	}
}

func TestString_MultipleValues(t *testing.T) {
	got := redact.String("pw=hunter2secret tok=tok_live_xxx end", "hunter2secret", "tok_live_xxx")
	if got != "pw=[REDACTED] tok=[REDACTED] end" {
		t.Fatalf("got %q", got)
	}
}

func TestError(t *testing.T) {
	err := errors.New("request with token tok_live_xxx rejected")
	if got := redact.Error(err, "tok_live_xxx"); got != "request with token [REDACTED] rejected" {
		t.Fatalf("got %q", got)
	}
	if got := redact.Error(nil, "tok_live_xxx"); got != "" {
		t.Fatalf("nil error: got %q", got)
	}
}

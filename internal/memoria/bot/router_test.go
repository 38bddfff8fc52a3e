package bot

import (
	"context"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	r := NewRouter("$")

	cmd, err := r.Parse("  $message msg-1 extra  ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Name != "message" {
		t.Errorf("Name: got %q, want %q", cmd.Name, "message")
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "msg-1" || cmd.Args[1] != "extra" {
		t.Errorf("Args: got %v", cmd.Args)
	}
}

func TestParse_NotACommand(t *testing.T) {
	r := NewRouter("$")

	_, err := r.Parse("just chatting about $5 pizza")
	if !errors.Is(err, ErrNotACommand) {
		t.Fatalf("expected ErrNotACommand, got %v", err)
	}
}

func TestParse_BarePrefix(t *testing.T) {
	r := NewRouter("$")

	if _, err := r.Parse("$"); err == nil {
		t.Fatal("expected error for bare prefix")
	}
	if _, err := r.Parse("$   "); err == nil {
		t.Fatal("expected error for prefix with only spaces")
	}
}

func TestRoute(t *testing.T) {
	r := NewRouter("$")
	r.Register("ping", func(ctx context.Context, cmd *Command) (string, error) {
		return "pong", nil
	})

	reply, err := r.Route(context.Background(), "$ping")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if reply != "pong" {
		t.Errorf("reply: got %q, want %q", reply, "pong")
	}
}

func TestRoute_UnknownCommand(t *testing.T) {
	r := NewRouter("$")

	reply, err := r.Route(context.Background(), "$definitely-not-registered")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if reply != "Unknown command $definitely-not-registered" {
		t.Errorf("reply: got %q", reply)
	}
}

func TestRoute_HandlerError(t *testing.T) {
	r := NewRouter("$")
	boom := errors.New("boom")
	r.Register("bad", func(ctx context.Context, cmd *Command) (string, error) {
		return "", boom
	})

	if _, err := r.Route(context.Background(), "$bad"); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

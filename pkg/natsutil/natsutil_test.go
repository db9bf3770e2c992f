package natsutil

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*headerCarrier)(msg)

	if c.Get("traceparent") != "" {
		t.Fatal("empty carrier must return empty values")
	}
	if c.Keys() != nil {
		t.Fatal("empty carrier must have no keys")
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("get = %q", got)
	}
	if len(c.Keys()) != 1 {
		t.Fatalf("keys = %v", c.Keys())
	}
	// The header lands on the underlying message for the wire.
	if msg.Header.Get("traceparent") == "" {
		t.Fatal("header not set on message")
	}
}

func TestPublishRejectsUnmarshalable(t *testing.T) {
	// Marshal failure must surface before any connection use.
	err := Publish(context.Background(), nil, "registry.analyze", make(chan int))
	if err == nil {
		t.Fatal("expected marshal error")
	}
}

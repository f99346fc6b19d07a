package app

import (
	"context"
	"errors"
	"testing"

	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/knowledge"
	"github.com/aixone/knowledge-agent/internal/store"
	"github.com/aixone/knowledge-agent/internal/testutil"
)

// Both stores must satisfy every port the wiring hands out.
var (
	_ knowledge.ChunkStore      = (*store.Memory)(nil)
	_ knowledge.Searcher        = (*store.Memory)(nil)
	_ knowledge.AttributeSource = (*store.Memory)(nil)
	_ DocumentStore             = (*store.Memory)(nil)
	_ knowledge.ChunkStore      = (*store.Postgres)(nil)
	_ knowledge.Searcher        = (*store.Postgres)(nil)
	_ knowledge.AttributeSource = (*store.Postgres)(nil)
	_ DocumentStore             = (*store.Postgres)(nil)
)

func TestSetupNilConfig(t *testing.T) {
	_, err := Setup(context.Background(), nil, testutil.DiscardLogger(), Options{})
	if !errors.Is(err, config.ErrConfigNil) {
		t.Errorf("Setup(nil config) error = %v, want ErrConfigNil", err)
	}
}

func TestSetupRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{Provider: "mystery", EmbedderModel: "m"}

	_, err := Setup(context.Background(), cfg, testutil.DiscardLogger(), Options{UseMemory: true})
	if err == nil {
		t.Fatal("Setup() with unknown provider expected error")
	}
}

func TestCloseCancelsAppContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cancel: cancel}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("app context still live after Close()")
	}
}

func TestCloseOnEmptyApp(t *testing.T) {
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on empty app error = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a := &App{Logger: testutil.DiscardLogger()}
	if err := a.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

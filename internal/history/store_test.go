package history

import (
	"context"
	"testing"

	"github.com/ctlst/telegramollamabot/internal/models"
)

func TestMemoryStoreExchangeOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	history, err := store.History(ctx, "42")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history for new session, got %d", len(history))
	}

	pairs := []struct{ q, a string }{
		{"hi", "hello"},
		{"how are you", "fine"},
	}
	for _, p := range pairs {
		err := store.AppendExchange(ctx, "42",
			models.Message{Role: models.RoleUser, Content: p.q},
			models.Message{Role: models.RoleAssistant, Content: p.a},
		)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err = store.History(ctx, "42")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	for i, msg := range history {
		wantRole := models.RoleUser
		if i%2 == 1 {
			wantRole = models.RoleAssistant
		}
		if msg.Role != wantRole {
			t.Fatalf("message %d has role %q, want %q", i, msg.Role, wantRole)
		}
	}
	if history[2].Content != "how are you" {
		t.Fatalf("unexpected ordering: %+v", history)
	}
}

func TestMemoryStoreHistoryIsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.AppendExchange(ctx, "7",
		models.Message{Role: models.RoleUser, Content: "q"},
		models.Message{Role: models.RoleAssistant, Content: "a"},
	); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, _ := store.History(ctx, "7")
	history[0].Content = "mutated"

	again, _ := store.History(ctx, "7")
	if again[0].Content != "q" {
		t.Fatalf("store exposed internal slice: %+v", again)
	}
}

func TestMemoryStoreClearIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Clearing a session that never existed succeeds.
	if err := store.Clear(ctx, "nobody"); err != nil {
		t.Fatalf("clear empty session: %v", err)
	}

	if err := store.AppendExchange(ctx, "9",
		models.Message{Role: models.RoleUser, Content: "q"},
		models.Message{Role: models.RoleAssistant, Content: "a"},
	); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx, "9"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx, "9"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	history, _ := store.History(ctx, "9")
	if len(history) != 0 {
		t.Fatalf("expected cleared history, got %d messages", len(history))
	}
}

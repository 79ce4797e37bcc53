package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ctlst/telegramollamabot/internal/history"
	"github.com/ctlst/telegramollamabot/internal/models"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.seen = append(f.seen, input)
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newTestService(t *testing.T, chat einomodel.BaseChatModel, baseURL string) *Service {
	t.Helper()
	return &Service{
		chat:       chat,
		store:      history.NewMemoryStore(),
		httpClient: &http.Client{},
		baseURL:    baseURL,
		log:        log.New(os.Stderr),
	}
}

func TestChatReplaysHistory(t *testing.T) {
	fake := &fakeChatModel{reply: "hello there"}
	svc := newTestService(t, fake, "")
	ctx := context.Background()

	first, err := svc.Chat(ctx, "mistral", "hi", "7")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if first.Response != "hello there" {
		t.Fatalf("unexpected response %q", first.Response)
	}
	if len(fake.seen[0]) != 1 {
		t.Fatalf("expected 1 message on first turn, got %d", len(fake.seen[0]))
	}

	if _, err := svc.Chat(ctx, "mistral", "again", "7"); err != nil {
		t.Fatalf("second chat: %v", err)
	}
	second := fake.seen[1]
	if len(second) != 3 {
		t.Fatalf("expected prior pair plus new message, got %d", len(second))
	}
	if second[0].Content != "hi" || second[0].Role != schema.User {
		t.Fatalf("history user turn wrong: %+v", second[0])
	}
	if second[1].Content != "hello there" || second[1].Role != schema.Assistant {
		t.Fatalf("history assistant turn wrong: %+v", second[1])
	}
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("model exploded")}
	svc := newTestService(t, fake, "")
	ctx := context.Background()

	if _, err := svc.Chat(ctx, "mistral", "hi", "9"); err == nil {
		t.Fatalf("expected chat error")
	}
	stored, _ := svc.store.History(ctx, "9")
	if len(stored) != 0 {
		t.Fatalf("failed call must not record history, got %d messages", len(stored))
	}
}

func TestGenerateIsStateless(t *testing.T) {
	fake := &fakeChatModel{reply: "done"}
	svc := newTestService(t, fake, "")
	ctx := context.Background()

	res, err := svc.Generate(ctx, "mistral", "write a haiku")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Response != "done" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if res.ElapsedSeconds < 0 {
		t.Fatalf("elapsed must be non-negative")
	}
	stored, _ := svc.store.History(ctx, "default")
	if len(stored) != 0 {
		t.Fatalf("generate must not touch history")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3","size":4661224676},{"name":"phi3","size":0}]}`))
	}))
	defer srv.Close()

	svc := newTestService(t, &fakeChatModel{}, srv.URL)
	listed, err := svc.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(listed) != 2 || listed[0].Name != "llama3" || listed[1].Name != "phi3" {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	if listed[0].SizeGB() != 4.34 {
		t.Fatalf("unexpected size: %v", listed[0].SizeGB())
	}
	if listed[1].SizeGB() != models.SizeUnknown {
		t.Fatalf("zero size should be unknown, got %v", listed[1].SizeGB())
	}
}

func TestPullModel(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	svc := newTestService(t, &fakeChatModel{}, srv.URL)
	if err := svc.PullModel(context.Background(), "mistral"); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !strings.Contains(gotBody, `"name":"mistral"`) {
		t.Fatalf("unexpected pull body: %s", gotBody)
	}

	if err := svc.PullModel(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty model name")
	}
}

func TestPullModelRuntimeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"pull model manifest: file does not exist"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(t, &fakeChatModel{}, srv.URL)
	if err := svc.PullModel(context.Background(), "no-such-model"); err == nil {
		t.Fatalf("expected pull failure")
	}
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceMs != 500 {
		t.Errorf("DebounceMs = %d, want 500", config.DebounceMs)
	}
	found := false
	for _, name := range config.Ignore {
		if name == "node_modules" {
			found = true
		}
	}
	if !found {
		t.Error("Ignore should contain node_modules")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"app/models.py", true},
		{"src/app/user.component.ts", true},
		{"src/types.d.ts", false},
		{"pyproject.toml", true},
		{"web/package.json", true},
		{"README.md", false},
		{"app/models.pyc", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Relevant(tt.path); got != tt.want {
				t.Errorf("Relevant(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsIgnored(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Config{Ignore: []string{"node_modules", "__pycache__"}}, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.fsw.Close()

	tests := []struct {
		rel  string
		want bool
	}{
		{".", false},
		{"app/models.py", false},
		{"node_modules/lib/index.ts", true},
		{"app/__pycache__/models.py", true},
		{".git/HEAD", true},
		{"app/.venv/site.py", true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := w.IsIgnored(filepath.Join(root, tt.rel)); got != tt.want {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestBatchDebouncerDedupesByPath(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Event

	d := NewBatchDebouncer(20*time.Millisecond, func(events []Event) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	d.Add(Event{Type: EventCreate, Path: "b.py"})
	d.Add(Event{Type: EventModify, Path: "a.py"})
	d.Add(Event{Type: EventModify, Path: "b.py"})

	if got := d.EventCount(); got != 2 {
		t.Errorf("EventCount() = %d, want 2", got)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	batch := batches[0]
	if len(batch) != 2 {
		t.Fatalf("batch has %d events, want 2", len(batch))
	}
	if batch[0].Path != "a.py" || batch[1].Path != "b.py" {
		t.Errorf("batch not sorted by path: %v", batch)
	}
	if batch[1].Type != EventModify {
		t.Errorf("b.py type = %v, want latest event modify", batch[1].Type)
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	called := make(chan struct{}, 1)
	d := NewBatchDebouncer(20*time.Millisecond, func([]Event) { called <- struct{}{} })

	d.Add(Event{Path: "a.py"})
	d.Cancel()

	select {
	case <-called:
		t.Error("emit called after Cancel")
	case <-time.After(80 * time.Millisecond):
	}
	if d.EventCount() != 0 {
		t.Error("events should be cleared by Cancel")
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var got []Event
	d := NewBatchDebouncer(time.Hour, func(events []Event) { got = events })

	d.Add(Event{Path: "a.py"})
	d.Flush()

	if len(got) != 1 || got[0].Path != "a.py" {
		t.Errorf("Flush() emitted %v", got)
	}
}

func TestWatcherReportsSourceChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "app"), 0o755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []Event, 4)
	w, err := New(root, Config{DebounceMs: 50}, nil, func(events []Event) { batches <- events })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give Run time to register the tree
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "app", "notes.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "app", "models.py"), []byte("class A:\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-batches:
		for _, e := range events {
			if e.Path == "app/notes.md" {
				t.Errorf("irrelevant file reported: %v", e)
			}
		}
		found := false
		for _, e := range events {
			if e.Path == "app/models.py" {
				found = true
			}
		}
		if !found {
			t.Errorf("app/models.py not reported in %v", events)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch received")
	}
}

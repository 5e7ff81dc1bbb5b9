package outbox

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewFileStore(filepath.Join(t.TempDir(), "outbox.json"), logger)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	queue := []QueuedMessage{
		{ConversationID: "c1", Content: "hello", ID: "q1"},
		{ConversationID: "c2", Content: "world", ID: "q2"},
	}
	s.Save(queue)

	first := s.Load()
	if !reflect.DeepEqual(first, queue) {
		t.Errorf("Load() = %v, want %v", first, queue)
	}

	// save(load()) is idempotent: a second load yields the same sequence.
	s.Save(first)
	second := s.Load()
	if !reflect.DeepEqual(second, first) {
		t.Errorf("second Load() = %v, want %v", second, first)
	}
}

func TestLoadAbsentFile(t *testing.T) {
	s := testStore(t)
	if got := s.Load(); len(got) != 0 {
		t.Errorf("Load() = %v for absent file, want empty", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json at all"},
		{"wrong shape", `{"conversationId":"c1"}`},
		{"truncated", `[{"conversationId":"c1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := zap.NewDevelopment()
			path := filepath.Join(t.TempDir(), "outbox.json")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			s := NewFileStore(path, logger)
			if got := s.Load(); len(got) != 0 {
				t.Errorf("Load() = %v for malformed data, want empty", got)
			}
		})
	}
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "outbox.json")
	s := NewFileStore(path, logger)
	s.Save(nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("persisted %q, want []", data)
	}
}

func TestSaveToUnwritablePathSwallowed(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s := NewFileStore("/proc/does-not-exist/outbox.json", logger)
	// Must not panic or error; the in-memory queue stays authoritative.
	s.Save([]QueuedMessage{{ConversationID: "c1", Content: "x"}})
}

// Package outbox holds messages the UI has accepted but the live transport
// has not. Entries survive process restarts via a single JSON file; an entry
// leaves the queue only when a flush or retry hands it back to the transport.
package outbox

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// QueuedMessage is a message accepted locally but not yet handed to the
// live transport.
type QueuedMessage struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	ID             string `json:"id,omitempty"`
}

// FileStore persists the queue as a JSON array at a fixed path.
// Persistence is best-effort in both directions: a missing or corrupted
// file loads as an empty queue, and write failures are swallowed. The
// in-memory queue stays authoritative for the current session; losing a
// corrupted queue file must never block startup.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the persisted queue. Never returns an error: absent,
// unreadable, or malformed data yields an empty queue.
func (s *FileStore) Load() []QueuedMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("outbox unreadable, starting empty", zap.Error(err))
		}
		return nil
	}
	var queue []QueuedMessage
	if err := json.Unmarshal(data, &queue); err != nil {
		s.logger.Warn("outbox malformed, starting empty", zap.Error(err))
		return nil
	}
	return queue
}

// Save overwrites the persisted queue. Failures are logged and swallowed.
func (s *FileStore) Save(queue []QueuedMessage) {
	if queue == nil {
		queue = []QueuedMessage{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		s.logger.Warn("outbox encode failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.logger.Warn("outbox dir create failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		s.logger.Warn("outbox write failed", zap.Error(err))
	}
}

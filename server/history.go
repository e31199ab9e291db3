package server

import (
	"sync"
	"time"
)

// HistoryEntry is one exchanged chat message. Immutable once appended.
type HistoryEntry struct {
	SenderID    string
	RecipientID string
	Text        string
	Timestamp   time.Time
}

// HistoryStore keeps per-conversation chat logs in memory. A conversation
// is keyed by the lexicographically ordered pair of user ids, so A-B and
// B-A resolve to the same log. Entries are never deleted.
type HistoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{conversations: make(map[string][]HistoryEntry)}
}

func conversationKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

func (h *HistoryStore) Append(senderID, recipientID, text string) {
	entry := HistoryEntry{
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		Timestamp:   time.Now(),
	}

	key := conversationKey(senderID, recipientID)
	h.mu.Lock()
	h.conversations[key] = append(h.conversations[key], entry)
	h.mu.Unlock()
}

// HistoryFor returns the conversation between two users in insertion order.
// A pair with no prior messages yields an empty slice.
func (h *HistoryStore) HistoryFor(userA, userB string) []HistoryEntry {
	key := conversationKey(userA, userB)

	h.mu.RLock()
	defer h.mu.RUnlock()

	log := h.conversations[key]
	out := make([]HistoryEntry, len(log))
	copy(out, log)
	return out
}

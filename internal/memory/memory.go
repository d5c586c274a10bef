// Package memory keeps the sliding-window conversational context used by the
// extraction engine. State is process-lifetime only; losing it on restart is
// an accepted limitation, not a bug.
package memory

import (
	"container/list"
	"sync"
)

// Turn is one conversational entry: who said what.
type Turn struct {
	Speaker string
	Text    string
}

// Store holds a bounded FIFO window of turns per chat. The chat map itself is
// an LRU bounded by maxChats, so idle group chats cannot leak memory forever.
type Store struct {
	mu       sync.Mutex
	window   int
	maxChats int
	chats    map[string]*list.Element
	order    *list.List // front = most recently active
}

type chatEntry struct {
	id    string
	turns []Turn
}

// NewStore creates a store keeping at most window turns per chat and at most
// maxChats chats.
func NewStore(window, maxChats int) *Store {
	if window < 1 {
		window = 1
	}
	if maxChats < 1 {
		maxChats = 1
	}
	return &Store{
		window:   window,
		maxChats: maxChats,
		chats:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Append records a turn for a chat, evicting the oldest turn once the window
// is full. The chat is created lazily on first use. It returns a copy of the
// post-append window so callers observe the turn they just added together
// with its context under a single lock; reading the window in a second call
// could race a concurrent LRU eviction of the chat.
func (s *Store) Append(chatID, speaker, text string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.chats[chatID]
	if !ok {
		elem = s.order.PushFront(&chatEntry{id: chatID})
		s.chats[chatID] = elem
		if s.order.Len() > s.maxChats {
			oldest := s.order.Back()
			s.order.Remove(oldest)
			delete(s.chats, oldest.Value.(*chatEntry).id)
		}
	} else {
		s.order.MoveToFront(elem)
	}

	entry := elem.Value.(*chatEntry)
	entry.turns = append(entry.turns, Turn{Speaker: speaker, Text: text})
	if len(entry.turns) > s.window {
		entry.turns = entry.turns[len(entry.turns)-s.window:]
	}

	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out
}

// Window returns a copy of the chat's current turns, oldest first. A chat
// with no history yields an empty slice.
func (s *Store) Window(chatID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	entry := elem.Value.(*chatEntry)
	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out
}

// Chats returns the number of tracked chats.
func (s *Store) Chats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

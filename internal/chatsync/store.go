package chatsync

import (
	"fmt"
	"slices"
	"sync"

	"patentchat/internal/models"
)

// Store is the ordered message list of one conversation view. Order is the
// order messages were inserted in; nothing here sorts by time. All methods are
// safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []models.Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of messages held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the message with id.
func (s *Store) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return models.Message{}, false
}

// Position returns the list index of id, or -1.
func (s *Store) Position(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id)
}

// FirstID returns the ID at the top of the list, or "" when empty.
func (s *Store) FirstID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 {
		return ""
	}
	return s.items[0].ID
}

// LastID returns the ID at the bottom of the list, or "" when empty.
func (s *Store) LastID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 {
		return ""
	}
	return s.items[len(s.items)-1].ID
}

// Replace swaps the whole list, used for the initial window.
func (s *Store) Replace(msgs []models.Message) {
	fresh := Merge(msgs, nil)

	s.mu.Lock()
	s.items = fresh
	s.mu.Unlock()
}

// MergeOlder puts an older page in front of the list and returns the ID that
// was first before the merge, so the viewport can stay pinned to it.
func (s *Store) MergeOlder(older []models.Message) (anchorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) > 0 {
		anchorID = s.items[0].ID
	}
	s.items = Merge(older, s.items)
	return anchorID
}

// AppendOptimistic adds a client-originated message at the end.
func (s *Store) AppendOptimistic(msg models.Message) error {
	if !IsLocalID(msg.ID) {
		return fmt.Errorf("%w: %s", ErrNotOptimistic, msg.ID)
	}
	if msg.LocalStatus != models.LocalStatusSending {
		return fmt.Errorf("%w: new message must be sending, got %q", ErrInvalidTransition, msg.LocalStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(msg.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, msg.ID)
	}
	s.items = append(s.items, msg)
	return nil
}

// Reconcile puts the server copy where the optimistic message localID sits.
// If that server ID is already listed elsewhere (a page fetched while the send
// was in flight), the other copy is dropped so IDs stay unique and the message
// keeps the slot the user saw it in.
func (s *Store) Reconcile(localID string, confirmed models.Message) error {
	confirmed.LocalStatus = models.LocalStatusNone

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.optimisticIndex(localID)
	if err != nil {
		return err
	}

	if dup := s.indexOf(confirmed.ID); dup >= 0 && dup != i {
		s.items = slices.Delete(s.items, dup, dup+1)
		if dup < i {
			i--
		}
	}
	s.items[i] = confirmed
	return nil
}

// MarkFailed flags the optimistic message localID as failed in place.
func (s *Store) MarkFailed(localID string) error {
	return s.setLocalStatus(localID, models.LocalStatusFailed)
}

// MarkSending flags the optimistic message localID as sending again.
func (s *Store) MarkSending(localID string) error {
	return s.setLocalStatus(localID, models.LocalStatusSending)
}

func (s *Store) setLocalStatus(localID string, status models.LocalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.optimisticIndex(localID)
	if err != nil {
		return err
	}
	s.items[i].LocalStatus = status
	return nil
}

func (s *Store) optimisticIndex(localID string) (int, error) {
	i := s.indexOf(localID)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	if !s.items[i].Pending() {
		return -1, fmt.Errorf("%w: %s", ErrNotOptimistic, localID)
	}
	return i, nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

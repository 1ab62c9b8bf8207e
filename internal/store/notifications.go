package store

import (
	"slices"
	"sync"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// NotificationStore holds notifications newest-first.
//
// Ids are unique: adding a notification whose id already exists updates it
// in place instead of inserting a duplicate.
type NotificationStore struct {
	mu      sync.RWMutex
	items   []domain.Notification
	localID int
	bus     *Bus
}

// NewNotificationStore creates an empty NotificationStore publishing on bus (which may be nil).
func NewNotificationStore(bus *Bus) *NotificationStore {
	return &NotificationStore{bus: bus}
}

// Add inserts a notification at the head.
func (s *NotificationStore) Add(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := OpAdd
	if i := s.indexLocked(n.ID); i >= 0 {
		s.items[i] = n
		op = OpUpdate
	} else {
		s.items = slices.Insert(s.items, 0, n)
	}
	s.bus.publish(TopicNotifications, op, n.ID)
}

// Update replaces the notification with the same id. No-op if absent.
func (s *NotificationStore) Update(n domain.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(n.ID)
	if i < 0 {
		return false
	}
	s.items[i] = n
	s.bus.publish(TopicNotifications, OpUpdate, n.ID)
	return true
}

// RemoveByID removes every notification with the id. No-op if none match.
func (s *NotificationStore) RemoveByID(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(x domain.Notification) bool { return x.ID == id })
	if len(s.items) == before {
		return false
	}
	s.bus.publish(TopicNotifications, OpRemove, id)
	return true
}

// RemoveAt removes the notification at a position. Out-of-range is a no-op.
func (s *NotificationStore) RemoveAt(pos int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 0 || pos >= len(s.items) {
		return false
	}
	id := s.items[pos].ID
	s.items = slices.Delete(s.items, pos, pos+1)
	s.bus.publish(TopicNotifications, OpRemove, id)
	return true
}

// ReplaceAll swaps the whole list. The input is taken as newest-first;
// later duplicates of an id are dropped.
func (s *NotificationStore) ReplaceAll(list []domain.Notification) {
	items := make([]domain.Notification, 0, len(list))
	seen := make(map[int]bool, len(list))
	for _, n := range list {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		items = append(items, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	s.bus.publish(TopicNotifications, OpReplace, 0)
}

// Clear removes every notification.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.bus.publish(TopicNotifications, OpClear, 0)
}

// MarkRead sets read_status on one notification.
func (s *NotificationStore) MarkRead(id int) bool {
	return s.setRead(id, true)
}

// MarkUnread clears read_status on one notification.
func (s *NotificationStore) MarkUnread(id int) bool {
	return s.setRead(id, false)
}

// MarkAllRead sets read_status on every notification.
func (s *NotificationStore) MarkAllRead() {
	s.setAllRead(true)
}

// MarkAllUnread clears read_status on every notification.
func (s *NotificationStore) MarkAllUnread() {
	s.setAllRead(false)
}

// Get returns one notification.
func (s *NotificationStore) Get(id int) (domain.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return domain.Notification{}, false
}

// All returns a copy of every notification, newest first.
func (s *NotificationStore) All() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Count returns the number of notifications.
func (s *NotificationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// UnreadCount returns the number of notifications with read_status false.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, x := range s.items {
		if !x.ReadStatus {
			n++
		}
	}
	return n
}

// NextLocalID returns a fresh id for a locally generated notification.
// Local ids are negative so they never collide with server ids.
func (s *NotificationStore) NextLocalID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localID--
	return s.localID
}

// AddListener registers fn for notification events and returns its id.
func (s *NotificationStore) AddListener(fn Listener) string {
	if s.bus == nil {
		return ""
	}
	return s.bus.Subscribe(fn, TopicNotifications)
}

// RemoveListener unregisters a listener added with AddListener.
func (s *NotificationStore) RemoveListener(id string) bool {
	if s.bus == nil {
		return false
	}
	return s.bus.Unsubscribe(id)
}

func (s *NotificationStore) setRead(id int, read bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	if s.items[i].ReadStatus != read {
		s.items[i].ReadStatus = read
		s.bus.publish(TopicNotifications, OpUpdate, id)
	}
	return true
}

func (s *NotificationStore) setAllRead(read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.items {
		if s.items[i].ReadStatus != read {
			s.items[i].ReadStatus = read
			changed = true
		}
	}
	if changed {
		s.bus.publish(TopicNotifications, OpUpdate, 0)
	}
}

func (s *NotificationStore) indexLocked(id int) int {
	return slices.IndexFunc(s.items, func(x domain.Notification) bool { return x.ID == id })
}

package api

import (
	"net/http"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// NotificationView adds display fields to a notification.
type NotificationView struct {
	domain.Notification
	Icon        string `json:"icon"`
	DisplayTime string `json:"display_time"`
}

// handleListNotifications returns notifications newest first.
// ?unread=true limits the list to unread ones.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	all := s.stores.Notifications.All()
	views := make([]NotificationView, 0, len(all))
	for _, n := range all {
		if unreadOnly && n.ReadStatus {
			continue
		}
		views = append(views, NotificationView{Notification: n, Icon: n.Icon(), DisplayTime: n.DisplayTime()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": views,
		"count":         len(views),
		"pending":       s.stream.PendingNotifications(),
	})
}

// handleUnreadCount returns the number of unread notifications.
func (s *Server) handleUnreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"unread": s.stores.Notifications.UnreadCount(),
	})
}

// handleMarkRead marks one notification read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, found := s.stores.Notifications.Get(id); !found {
		writeNotFound(w, "notification not found")
		return
	}
	if err := s.commands.MarkAsRead(r.Context(), id); err != nil {
		s.writeCommandError(w, err)
		return
	}
	n, _ := s.stores.Notifications.Get(id)
	writeJSON(w, http.StatusOK, n)
}

// handleMarkAllRead marks every notification read.
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.MarkAllAsRead(r.Context()); err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.stores.Notifications.UnreadCount()})
}

// handleDeleteNotifications deletes every notification.
func (s *Server) handleDeleteNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.DeleteAllNotifications(r.Context()); err != nil {
		s.writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

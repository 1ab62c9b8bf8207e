package domain

import (
	"strings"
	"time"
)

// Notification types produced locally. Server types are passed through as sent.
const (
	NotificationTypeWelcome = "welcome"
)

// Icon categories for notifications.
const (
	IconWarning  = "warning"
	IconDevice   = "device"
	IconSettings = "settings"
	IconReminder = "reminder"
	IconInfo     = "info"
	IconDefault  = "notification"
)

// Notification is one backend notification.
type Notification struct {
	ID         int    `json:"id"`
	Message    string `json:"message"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	DeviceID   int    `json:"device_id"`
	Timestamp  string `json:"ts"`
	ReadStatus bool   `json:"read_status"`
}

// Icon returns the icon category for the notification type.
func (n Notification) Icon() string {
	switch strings.ToLower(n.Type) {
	case "alert", "warning":
		return IconWarning
	case "device":
		return IconDevice
	case "system":
		return IconSettings
	case "reminder":
		return IconReminder
	case "info":
		return IconInfo
	default:
		return IconDefault
	}
}

// DisplayTime returns the timestamp in display form.
func (n Notification) DisplayTime() string {
	return FormatTimestamp(n.Timestamp)
}

// DisplayLayout is the display form of a notification timestamp.
const DisplayLayout = "15:04 02-01-2006"

// inboundLayouts are tried in order. The backend emits microseconds and
// sometimes a trailing Z.
var inboundLayouts = []string{
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a backend timestamp as UTC.
func ParseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range inboundLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp converts a backend timestamp to "HH:mm dd-MM-yyyy" in UTC.
// Input that does not parse is returned unchanged.
func FormatTimestamp(ts string) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Format(DisplayLayout)
}

package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyItemID     = "item_id"
	KeyItemName   = "item_name"
	KeyStatus     = "status"
	KeyOldStatus  = "old_status"
	KeyNewStatus  = "new_status"
	KeyChangeType = "change_type"
	KeyWindow     = "window"
	KeyCount      = "count"
	KeyCategory   = "category"
	KeyLocation   = "location"
	KeySubject    = "subject"
	KeyScheduleID = "schedule_id"
	KeySchedule   = "schedule_name"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func ItemID(id string) slog.Attr      { return slog.String(KeyItemID, id) }
func ItemName(n string) slog.Attr     { return slog.String(KeyItemName, n) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func OldStatus(s string) slog.Attr    { return slog.String(KeyOldStatus, s) }
func NewStatus(s string) slog.Attr    { return slog.String(KeyNewStatus, s) }
func ChangeType(t string) slog.Attr   { return slog.String(KeyChangeType, t) }
func Window(w string) slog.Attr       { return slog.String(KeyWindow, w) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Location(l string) slog.Attr     { return slog.String(KeyLocation, l) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func ScheduleID(id string) slog.Attr  { return slog.String(KeyScheduleID, id) }
func ScheduleName(n string) slog.Attr { return slog.String(KeySchedule, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

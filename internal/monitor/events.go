package monitor

import (
	"time"

	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// ChangeType classifies a status transition observed between two checks.
type ChangeType string

const (
	ChangeFreshToNearExpiry   ChangeType = "fresh_to_near_expiry"
	ChangeNearExpiryToExpired ChangeType = "near_expiry_to_expired"
	ChangeExpiredToFresh      ChangeType = "expired_to_fresh"
	ChangeOther               ChangeType = "other"
)

func (c ChangeType) String() string { return string(c) }

// Classify maps an old/new status pair to its transition class. The empty
// string is returned when nothing changed. ExpiredToFresh is only possible
// when the expiration date itself was edited forward; it updates the
// snapshot but is never alerted on.
func Classify(oldStatus, newStatus ingredient.Status) ChangeType {
	if oldStatus == newStatus {
		return ""
	}
	switch {
	case oldStatus == ingredient.StatusFresh && newStatus == ingredient.StatusNearExpiry:
		return ChangeFreshToNearExpiry
	case oldStatus == ingredient.StatusNearExpiry && newStatus == ingredient.StatusExpired:
		return ChangeNearExpiryToExpired
	case oldStatus == ingredient.StatusExpired && newStatus == ingredient.StatusFresh:
		return ChangeExpiredToFresh
	default:
		return ChangeOther
	}
}

// StatusChangeEvent is the record of an item's status transition, produced
// to the notification dispatcher.
type StatusChangeEvent struct {
	ItemID     string            `json:"item_id"`
	ItemName   string            `json:"item_name"`
	OldStatus  ingredient.Status `json:"old_status"`
	NewStatus  ingredient.Status `json:"new_status"`
	ChangeType ChangeType        `json:"change_type"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// AlertClasses selects which transition classes produce outbound
// notifications. Transitions with a disabled class still update the
// snapshot silently.
type AlertClasses struct {
	NearExpiry bool `json:"near_expiry" yaml:"near_expiry"`
	Expired    bool `json:"expired" yaml:"expired"`
}

// enabled reports whether the class covering c is switched on. Only the
// two degradation transitions are ever alertable.
func (a AlertClasses) enabled(c ChangeType) bool {
	switch c {
	case ChangeFreshToNearExpiry:
		return a.NearExpiry
	case ChangeNearExpiryToExpired:
		return a.Expired
	default:
		return false
	}
}

package model

import "time"

// Notification type constants
const (
	NotifTypeItemAdded        = "item_added"
	NotifTypeOccasionCreated  = "occasion_created"
	NotifTypeOccasionReminder = "occasion_reminder"
	NotifTypePartnerMessage   = "partner_message"
)

// NotificationTypes lists every type a user can toggle.
var NotificationTypes = []string{
	NotifTypeItemAdded,
	NotifTypeOccasionCreated,
	NotifTypeOccasionReminder,
	NotifTypePartnerMessage,
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationPreference struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

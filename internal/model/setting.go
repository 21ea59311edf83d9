package model

import "time"

// Setting is a single application preference. Values are always stored as text.
type Setting struct {
	UpdatedAt time.Time
	Key       string
	Value     string
}

// Well-known setting keys.
const (
	SettingDBVersion            = "db_version"
	SettingCurrency             = "currency"
	SettingTheme                = "theme"
	SettingNotificationsEnabled = "notifications_enabled"
	SettingBudgetAlertsEnabled  = "budget_alerts_enabled"
	SettingDailyReminderEnabled = "daily_reminder_enabled"
)

package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// DefaultSettings are seeded for keys that are not present yet.
var DefaultSettings = map[string]string{
	model.SettingCurrency:             "USD",
	model.SettingTheme:                "system",
	model.SettingNotificationsEnabled: "true",
	model.SettingBudgetAlertsEnabled:  "true",
	model.SettingDailyReminderEnabled: "false",
}

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SettingsStore is a key/value store for application preferences.
type SettingsStore struct {
	conn *Conn
}

// NewSettingsStore returns a settings store backed by conn.
func NewSettingsStore(conn *Conn) *SettingsStore {
	return &SettingsStore{conn: conn}
}

// Get returns the value stored under key and whether it exists.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "get setting"
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	key, err := normalizeKey(op, key)
	if err != nil {
		return "", false, err
	}
	if _, err := s.conn.Open(ctx); err != nil {
		return "", false, err
	}

	res, err := s.conn.Execute(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		return "", false, err
	}
	if res.Len() == 0 {
		return "", false, nil
	}
	return res.Row(0).String("value"), true, nil
}

// Set stores value under key, replacing any previous value. The value is
// coerced to text; nil is rejected.
func (s *SettingsStore) Set(ctx context.Context, key string, value any) error {
	const op = "set setting"
	if err := validateContext(ctx); err != nil {
		return err
	}
	key, text, err := prepareSetting(op, key, value)
	if err != nil {
		return err
	}
	if _, err := s.conn.Open(ctx); err != nil {
		return err
	}

	if _, err := s.conn.Execute(ctx, upsertSetting, key, text, time.Now().UTC()); err != nil {
		return err
	}
	slog.Debug("saved setting", "key", key)
	return nil
}

// GetAll returns every stored setting as a key → value map.
func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if _, err := s.conn.Open(ctx); err != nil {
		return nil, err
	}

	res, err := s.conn.Execute(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}

	settings := make(map[string]string, res.Len())
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)
		settings[row.String("key")] = row.String("value")
	}
	return settings, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	const op = "delete setting"
	if err := validateContext(ctx); err != nil {
		return err
	}
	key, err := normalizeKey(op, key)
	if err != nil {
		return err
	}
	if key == model.SettingDBVersion {
		return validationError(op, "%s is managed by migrations", key)
	}
	if _, err := s.conn.Open(ctx); err != nil {
		return err
	}

	res, err := s.conn.Execute(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}
	slog.Debug("deleted setting", "key", key, "existed", res.RowsAffected > 0)
	return nil
}

// GetWithDefault returns the stored value or fallback. Errors are logged and
// yield fallback.
func (s *SettingsStore) GetWithDefault(ctx context.Context, key, fallback string) string {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		slog.Debug("falling back to default setting", "key", key, "error", err)
		return fallback
	}
	if !ok {
		return fallback
	}
	return value
}

// GetMultiple returns the stored values for keys; absent keys are omitted.
func (s *SettingsStore) GetMultiple(ctx context.Context, keys []string) (map[string]string, error) {
	const op = "get settings"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	args := make([]any, 0, len(keys))
	for _, key := range keys {
		normalized, err := normalizeKey(op, key)
		if err != nil {
			return nil, err
		}
		args = append(args, normalized)
	}
	if _, err := s.conn.Open(ctx); err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	res, err := s.conn.Execute(ctx, `SELECT key, value FROM settings WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, res.Len())
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)
		values[row.String("key")] = row.String("value")
	}
	return values, nil
}

// SetMultiple stores every entry atomically: all values are validated
// before anything is written.
func (s *SettingsStore) SetMultiple(ctx context.Context, values map[string]any) error {
	const op = "set settings"
	if err := validateContext(ctx); err != nil {
		return err
	}

	prepared := make(map[string]string, len(values))
	for key, value := range values {
		k, text, err := prepareSetting(op, key, value)
		if err != nil {
			return err
		}
		prepared[k] = text
	}
	if len(prepared) == 0 {
		return nil
	}

	return s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for key, text := range prepared {
			if _, err := tx.ExecContext(ctx, upsertSetting, key, text, now); err != nil {
				return wrapExecErr(op, err, "save setting "+key)
			}
		}
		slog.Debug("saved settings", "count", len(prepared))
		return nil
	})
}

// InitializeDefaults seeds DefaultSettings for keys not already present and
// returns how many were written.
func (s *SettingsStore) InitializeDefaults(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for key, value := range DefaultSettings {
			result, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
				key, value, now)
			if err != nil {
				return wrapExecErr("seed settings", err, "seed setting "+key)
			}
			n, _ := result.RowsAffected()
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("initialized default settings", "inserted", inserted)
	return inserted, nil
}

// GetString returns the value under key, or fallback when it is absent.
func (s *SettingsStore) GetString(ctx context.Context, key, fallback string) (string, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

// GetBool reads key as a boolean. An absent key yields fallback; a value
// that is not a boolean is a validation error.
func (s *SettingsStore) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return fallback, &Error{Kind: KindValidation, Op: "get setting", Msg: "setting " + key + " is not a boolean", Err: err}
	}
	return b, nil
}

// GetNumber reads key as a number. An absent key yields fallback; a value
// that is not numeric is a validation error.
func (s *SettingsStore) GetNumber(ctx context.Context, key string, fallback float64) (float64, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(value))
	if err != nil {
		return fallback, &Error{Kind: KindValidation, Op: "get setting", Msg: "setting " + key + " is not a number", Err: err}
	}
	return f, nil
}

func normalizeKey(op, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", validationError(op, "key is required")
	}
	return key, nil
}

func prepareSetting(op, key string, value any) (string, string, error) {
	key, err := normalizeKey(op, key)
	if err != nil {
		return "", "", err
	}
	if key == model.SettingDBVersion {
		return "", "", validationError(op, "%s is managed by migrations", key)
	}
	if value == nil {
		return "", "", validationError(op, "value for %s cannot be nil", key)
	}
	text, err := cast.ToStringE(value)
	if err != nil {
		return "", "", &Error{Kind: KindValidation, Op: op, Msg: "value for " + key + " cannot be stored as text", Err: err}
	}
	return key, text, nil
}

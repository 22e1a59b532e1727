package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS infractions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    guild_id TEXT NOT NULL,
    type TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    moderator_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_infractions_guild_user ON infractions (guild_id, user_id);

CREATE TABLE IF NOT EXISTS active_mutes (
    user_id TEXT NOT NULL,
    guild_id TEXT NOT NULL,
    unmute_time DATETIME NOT NULL,
    channel_id TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, guild_id)
);

CREATE TABLE IF NOT EXISTS birthdays (
    user_id TEXT PRIMARY KEY,
    birthday TEXT NOT NULL,
    timezone TEXT NOT NULL DEFAULT 'UTC',
    last_triggered TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id TEXT PRIMARY KEY,
    channel_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_birthday_roles (
    user_id TEXT NOT NULL,
    guild_id TEXT NOT NULL,
    granted_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, guild_id)
);

CREATE TABLE IF NOT EXISTS log_config (
    guild_id TEXT NOT NULL,
    log_type TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    PRIMARY KEY (guild_id, log_type)
);

CREATE TABLE IF NOT EXISTS suggestions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    suggestion TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Pending',
    channel_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);`

// SQLiteStore implements Store on an embedded SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database file at path and makes
// sure every table exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to moderation database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the scheduler and commands.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Success(fmt.Sprintf("Base de datos SQLite lista en %s", path), "DB")
	return &SQLiteStore{db: db}, nil
}

// Infractions

func (s *SQLiteStore) AddInfraction(ctx context.Context, inf *models.Infraction) error {
	if inf.Timestamp.IsZero() {
		inf.Timestamp = time.Now()
	}
	inf.Timestamp = inf.Timestamp.UTC()

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO infractions (user_id, guild_id, type, reason, moderator_id, timestamp)
        VALUES (:user_id, :guild_id, :type, :reason, :moderator_id, :timestamp)`, inf)
	if err != nil {
		return fmt.Errorf("failed to insert infraction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read infraction id: %w", err)
	}
	inf.ID = id
	return nil
}

func (s *SQLiteStore) ListInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error) {
	var out []models.Infraction
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM infractions WHERE guild_id = ? AND user_id = ? ORDER BY id DESC", guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list infractions for %s in %s: %w", userID, guildID, err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteInfraction(ctx context.Context, guildID string, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM infractions WHERE id = ? AND guild_id = ?", id, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to delete infraction %d: %w", id, err)
	}
	return affected(res)
}

// Active mutes

func (s *SQLiteStore) UpsertActiveMute(ctx context.Context, mute models.ActiveMute) error {
	mute.UnmuteAt = mute.UnmuteAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO active_mutes (user_id, guild_id, unmute_time, channel_id)
        VALUES (:user_id, :guild_id, :unmute_time, :channel_id)
        ON CONFLICT (user_id, guild_id) DO UPDATE SET unmute_time = excluded.unmute_time, channel_id = excluded.channel_id`, mute)
	if err != nil {
		return fmt.Errorf("failed to upsert mute for %s in %s: %w", mute.UserID, mute.GuildID, err)
	}
	return nil
}

func (s *SQLiteStore) GetActiveMute(ctx context.Context, guildID, userID string) (*models.ActiveMute, error) {
	var mute models.ActiveMute
	err := s.db.GetContext(ctx, &mute, "SELECT * FROM active_mutes WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mute for %s in %s: %w", userID, guildID, err)
	}
	return &mute, nil
}

func (s *SQLiteStore) ListActiveMutes(ctx context.Context) ([]models.ActiveMute, error) {
	var out []models.ActiveMute
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM active_mutes"); err != nil {
		return nil, fmt.Errorf("failed to list active mutes: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListGuildMutes(ctx context.Context, guildID string) ([]models.ActiveMute, error) {
	var out []models.ActiveMute
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM active_mutes WHERE guild_id = ? ORDER BY unmute_time", guildID); err != nil {
		return nil, fmt.Errorf("failed to list mutes for guild %s: %w", guildID, err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteActiveMute(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM active_mutes WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete mute for %s in %s: %w", userID, guildID, err)
	}
	return nil
}

// Birthdays

// SetBirthday upserts b. The trigger guard is only reset when the date or
// the timezone changes.
func (s *SQLiteStore) SetBirthday(ctx context.Context, b models.Birthday) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO birthdays (user_id, birthday, timezone, last_triggered) VALUES (?, ?, ?, '')
        ON CONFLICT (user_id) DO UPDATE SET
            last_triggered = CASE WHEN birthdays.birthday = excluded.birthday AND birthdays.timezone = excluded.timezone
                THEN birthdays.last_triggered ELSE '' END,
            birthday = excluded.birthday,
            timezone = excluded.timezone`,
		b.UserID, b.Date, b.Timezone)
	if err != nil {
		return fmt.Errorf("failed to set birthday for %s: %w", b.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) GetBirthday(ctx context.Context, userID string) (*models.Birthday, error) {
	var b models.Birthday
	err := s.db.GetContext(ctx, &b, "SELECT * FROM birthdays WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get birthday for %s: %w", userID, err)
	}
	return &b, nil
}

func (s *SQLiteStore) DeleteBirthday(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM birthdays WHERE user_id = ?", userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete birthday for %s: %w", userID, err)
	}
	return affected(res)
}

func (s *SQLiteStore) ListBirthdays(ctx context.Context) ([]models.Birthday, error) {
	var out []models.Birthday
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM birthdays ORDER BY birthday"); err != nil {
		return nil, fmt.Errorf("failed to list birthdays: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListBirthdaysByMonth(ctx context.Context, month time.Month) ([]models.Birthday, error) {
	var out []models.Birthday
	prefix := fmt.Sprintf("%02d-%%", int(month))
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM birthdays WHERE birthday LIKE ? ORDER BY birthday", prefix); err != nil {
		return nil, fmt.Errorf("failed to list birthdays for month %d: %w", month, err)
	}
	return out, nil
}

func (s *SQLiteStore) MarkBirthdayTriggered(ctx context.Context, userID, localDate string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE birthdays SET last_triggered = ? WHERE user_id = ?", localDate, userID)
	if err != nil {
		return fmt.Errorf("failed to mark birthday for %s: %w", userID, err)
	}
	return nil
}

// Guild settings

func (s *SQLiteStore) SetBirthdayChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO guild_settings (guild_id, channel_id) VALUES (?, ?)
        ON CONFLICT (guild_id) DO UPDATE SET channel_id = excluded.channel_id`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to set birthday channel for %s: %w", guildID, err)
	}
	return nil
}

func (s *SQLiteStore) GetBirthdayChannel(ctx context.Context, guildID string) (string, error) {
	var channelID string
	err := s.db.GetContext(ctx, &channelID, "SELECT channel_id FROM guild_settings WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get birthday channel for %s: %w", guildID, err)
	}
	return channelID, nil
}

func (s *SQLiteStore) ListBirthdayChannels(ctx context.Context) ([]models.GuildSettings, error) {
	var out []models.GuildSettings
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM guild_settings"); err != nil {
		return nil, fmt.Errorf("failed to list guild settings: %w", err)
	}
	return out, nil
}

// Birthday roles

func (s *SQLiteStore) UpsertBirthdayRole(ctx context.Context, role models.ActiveBirthdayRole) error {
	role.GrantedAt = role.GrantedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO active_birthday_roles (user_id, guild_id, granted_at)
        VALUES (:user_id, :guild_id, :granted_at)
        ON CONFLICT (user_id, guild_id) DO UPDATE SET granted_at = excluded.granted_at`, role)
	if err != nil {
		return fmt.Errorf("failed to record birthday role for %s in %s: %w", role.UserID, role.GuildID, err)
	}
	return nil
}

func (s *SQLiteStore) ListBirthdayRoles(ctx context.Context) ([]models.ActiveBirthdayRole, error) {
	var out []models.ActiveBirthdayRole
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM active_birthday_roles"); err != nil {
		return nil, fmt.Errorf("failed to list birthday roles: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteBirthdayRole(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM active_birthday_roles WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete birthday role for %s in %s: %w", userID, guildID, err)
	}
	return nil
}

// Log channels

func (s *SQLiteStore) SetLogChannel(ctx context.Context, cfg models.LogConfig) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO log_config (guild_id, log_type, channel_id)
        VALUES (:guild_id, :log_type, :channel_id)
        ON CONFLICT (guild_id, log_type) DO UPDATE SET channel_id = excluded.channel_id`, cfg)
	if err != nil {
		return fmt.Errorf("failed to set %s log channel for %s: %w", cfg.LogType, cfg.GuildID, err)
	}
	return nil
}

func (s *SQLiteStore) GetLogChannel(ctx context.Context, guildID, logType string) (string, error) {
	var channelID string
	err := s.db.GetContext(ctx, &channelID, "SELECT channel_id FROM log_config WHERE guild_id = ? AND log_type = ?", guildID, logType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s log channel for %s: %w", logType, guildID, err)
	}
	return channelID, nil
}

func (s *SQLiteStore) ListLogChannels(ctx context.Context, guildID string) ([]models.LogConfig, error) {
	var out []models.LogConfig
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM log_config WHERE guild_id = ? ORDER BY log_type", guildID); err != nil {
		return nil, fmt.Errorf("failed to list log channels for %s: %w", guildID, err)
	}
	return out, nil
}

func (s *SQLiteStore) ListAllLogChannels(ctx context.Context) ([]models.LogConfig, error) {
	var out []models.LogConfig
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM log_config"); err != nil {
		return nil, fmt.Errorf("failed to list log channels: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteLogChannel(ctx context.Context, guildID, logType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM log_config WHERE guild_id = ? AND log_type = ?", guildID, logType)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s log channel for %s: %w", logType, guildID, err)
	}
	return affected(res)
}

// Suggestions

func (s *SQLiteStore) AddSuggestion(ctx context.Context, sug *models.Suggestion) error {
	if sug.Status == "" {
		sug.Status = models.SuggestionPending
	}
	if sug.CreatedAt.IsZero() {
		sug.CreatedAt = time.Now()
	}
	sug.CreatedAt = sug.CreatedAt.UTC()

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO suggestions (user_id, suggestion, status, channel_id, created_at)
        VALUES (:user_id, :suggestion, :status, :channel_id, :created_at)`, sug)
	if err != nil {
		return fmt.Errorf("failed to insert suggestion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read suggestion id: %w", err)
	}
	sug.ID = id
	return nil
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, id int64) (*models.Suggestion, error) {
	var sug models.Suggestion
	err := s.db.GetContext(ctx, &sug, "SELECT * FROM suggestions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion %d: %w", id, err)
	}
	return &sug, nil
}

func (s *SQLiteStore) UpdateSuggestionStatus(ctx context.Context, id int64, from, to models.SuggestionStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE suggestions SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update suggestion %d: %w", id, err)
	}
	return affected(res)
}

func (s *SQLiteStore) ListSuggestions(ctx context.Context) ([]models.Suggestion, error) {
	var out []models.Suggestion
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM suggestions ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return out, nil
}

// Status pings the database file.
func (s *SQLiteStore) Status() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n > 0, nil
}

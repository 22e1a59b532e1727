// Package database provides the persistent store used by the moderation bot.
// Two backends implement Store: an embedded SQLite file (the default) and a
// MongoDB deployment fronted by a cached DataManager.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/models"
)

// ErrNotConnected is returned by the Mongo backend when a read cannot be
// served while the database is offline.
var ErrNotConnected = errors.New("database not connected")

// Store is the persistence contract shared by every component. Lookups of a
// single record return (nil, nil) when the record does not exist.
type Store interface {
	// Infractions
	AddInfraction(ctx context.Context, inf *models.Infraction) error
	ListInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error)
	DeleteInfraction(ctx context.Context, guildID string, id int64) (bool, error)

	// Active mutes
	UpsertActiveMute(ctx context.Context, mute models.ActiveMute) error
	GetActiveMute(ctx context.Context, guildID, userID string) (*models.ActiveMute, error)
	ListActiveMutes(ctx context.Context) ([]models.ActiveMute, error)
	ListGuildMutes(ctx context.Context, guildID string) ([]models.ActiveMute, error)
	DeleteActiveMute(ctx context.Context, guildID, userID string) error

	// Birthdays
	SetBirthday(ctx context.Context, b models.Birthday) error
	GetBirthday(ctx context.Context, userID string) (*models.Birthday, error)
	DeleteBirthday(ctx context.Context, userID string) (bool, error)
	ListBirthdays(ctx context.Context) ([]models.Birthday, error)
	ListBirthdaysByMonth(ctx context.Context, month time.Month) ([]models.Birthday, error)
	MarkBirthdayTriggered(ctx context.Context, userID, localDate string) error

	// Guild settings
	SetBirthdayChannel(ctx context.Context, guildID, channelID string) error
	GetBirthdayChannel(ctx context.Context, guildID string) (string, error)
	ListBirthdayChannels(ctx context.Context) ([]models.GuildSettings, error)

	// Birthday roles
	UpsertBirthdayRole(ctx context.Context, role models.ActiveBirthdayRole) error
	ListBirthdayRoles(ctx context.Context) ([]models.ActiveBirthdayRole, error)
	DeleteBirthdayRole(ctx context.Context, guildID, userID string) error

	// Log channels
	SetLogChannel(ctx context.Context, cfg models.LogConfig) error
	GetLogChannel(ctx context.Context, guildID, logType string) (string, error)
	ListLogChannels(ctx context.Context, guildID string) ([]models.LogConfig, error)
	ListAllLogChannels(ctx context.Context) ([]models.LogConfig, error)
	DeleteLogChannel(ctx context.Context, guildID, logType string) (bool, error)

	// Suggestions
	AddSuggestion(ctx context.Context, s *models.Suggestion) error
	GetSuggestion(ctx context.Context, id int64) (*models.Suggestion, error)
	// UpdateSuggestionStatus moves a suggestion from one status to another and
	// reports false when the suggestion was not in the expected status.
	UpdateSuggestionStatus(ctx context.Context, id int64, from, to models.SuggestionStatus) (bool, error)
	ListSuggestions(ctx context.Context) ([]models.Suggestion, error)

	// Status returns a human readable connection status and whether the
	// backend is usable.
	Status() (string, bool)
	Close() error
}

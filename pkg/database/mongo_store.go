package database

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// MongoStore implements Store on MongoDB through cached DataManagers.
type MongoStore struct {
	db            *Database
	infractions   *DataManager[models.Infraction]
	mutes         *DataManager[models.ActiveMute]
	birthdays     *DataManager[models.Birthday]
	guildSettings *DataManager[models.GuildSettings]
	birthdayRoles *DataManager[models.ActiveBirthdayRole]
	logConfigs    *DataManager[models.LogConfig]
	suggestions   *DataManager[models.Suggestion]
	counters      *DataManager[counter]
}

// NewMongoStore wires the collections used by the bot. The database does not
// need to be connected yet.
func NewMongoStore(db *Database) *MongoStore {
	return &MongoStore{
		db:            db,
		infractions:   NewDataManager[models.Infraction]("infractions", db),
		mutes:         NewDataManager[models.ActiveMute]("active_mutes", db),
		birthdays:     NewDataManager[models.Birthday]("birthdays", db),
		guildSettings: NewDataManager[models.GuildSettings]("guild_settings", db),
		birthdayRoles: NewDataManager[models.ActiveBirthdayRole]("active_birthday_roles", db),
		logConfigs:    NewDataManager[models.LogConfig]("log_config", db),
		suggestions:   NewDataManager[models.Suggestion]("suggestions", db),
		counters:      NewDataManager[counter]("counters", db),
	}
}

// OpenMongo connects to MongoDB. A failed first connection is not fatal: the
// store starts offline and the reconnect loop keeps trying.
func OpenMongo(mongoURL, dbName string) (*MongoStore, error) {
	db := NewDatabase(mongoURL, dbName)
	err := db.Connect()
	return NewMongoStore(db), err
}

// Database exposes the underlying connection manager.
func (s *MongoStore) Database() *Database {
	return s.db
}

func (s *MongoStore) nextSequence(ctx context.Context, name string) (int64, error) {
	col := s.counters.collection()
	if col == nil {
		return 0, ErrNotConnected
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c); err != nil {
		s.counters.handleError(err)
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return c.Seq, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
}

// Infractions

func (s *MongoStore) AddInfraction(ctx context.Context, inf *models.Infraction) error {
	id, err := s.nextSequence(ctx, "infractions")
	if err != nil {
		return err
	}
	inf.ID = id
	if inf.Timestamp.IsZero() {
		inf.Timestamp = time.Now()
	}
	inf.Timestamp = inf.Timestamp.UTC()
	return s.infractions.Insert(ctx, inf)
}

func (s *MongoStore) ListInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error) {
	return s.infractions.GetAll(ctx, bson.M{"guildId": guildID, "userId": userID}, newestFirst())
}

func (s *MongoStore) DeleteInfraction(ctx context.Context, guildID string, id int64) (bool, error) {
	return s.infractions.Delete(ctx, bson.M{"_id": id, "guildId": guildID})
}

// Active mutes

func muteKey(guildID, userID string) bson.M {
	return bson.M{"guildId": guildID, "userId": userID}
}

func (s *MongoStore) UpsertActiveMute(ctx context.Context, mute models.ActiveMute) error {
	mute.UnmuteAt = mute.UnmuteAt.UTC()
	return s.mutes.Set(ctx, muteKey(mute.GuildID, mute.UserID), mute)
}

func (s *MongoStore) GetActiveMute(ctx context.Context, guildID, userID string) (*models.ActiveMute, error) {
	return s.mutes.Get(ctx, muteKey(guildID, userID))
}

func (s *MongoStore) ListActiveMutes(ctx context.Context) ([]models.ActiveMute, error) {
	return s.mutes.GetAll(ctx, bson.M{})
}

func (s *MongoStore) ListGuildMutes(ctx context.Context, guildID string) ([]models.ActiveMute, error) {
	return s.mutes.GetAll(ctx, bson.M{"guildId": guildID}, options.Find().SetSort(bson.D{{Key: "unmuteTime", Value: 1}}))
}

func (s *MongoStore) DeleteActiveMute(ctx context.Context, guildID, userID string) error {
	_, err := s.mutes.Delete(ctx, muteKey(guildID, userID))
	return err
}

// Birthdays

func (s *MongoStore) SetBirthday(ctx context.Context, b models.Birthday) error {
	update := bson.M{"birthday": b.Date, "timezone": b.Timezone}
	current, err := s.birthdays.Get(ctx, bson.M{"_id": b.UserID})
	if err != nil {
		return err
	}
	if current == nil || current.Date != b.Date || current.Timezone != b.Timezone {
		update["lastTriggered"] = ""
	}
	return s.birthdays.Set(ctx, bson.M{"_id": b.UserID}, update)
}

func (s *MongoStore) GetBirthday(ctx context.Context, userID string) (*models.Birthday, error) {
	return s.birthdays.Get(ctx, bson.M{"_id": userID})
}

func (s *MongoStore) DeleteBirthday(ctx context.Context, userID string) (bool, error) {
	return s.birthdays.Delete(ctx, bson.M{"_id": userID})
}

func (s *MongoStore) ListBirthdays(ctx context.Context) ([]models.Birthday, error) {
	return s.birthdays.GetAll(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "birthday", Value: 1}}))
}

func (s *MongoStore) ListBirthdaysByMonth(ctx context.Context, month time.Month) ([]models.Birthday, error) {
	query := bson.M{"birthday": bson.M{"$regex": fmt.Sprintf("^%02d-", int(month))}}
	return s.birthdays.GetAll(ctx, query, options.Find().SetSort(bson.D{{Key: "birthday", Value: 1}}))
}

func (s *MongoStore) MarkBirthdayTriggered(ctx context.Context, userID, localDate string) error {
	return s.birthdays.Set(ctx, bson.M{"_id": userID}, bson.M{"lastTriggered": localDate})
}

// Guild settings

func (s *MongoStore) SetBirthdayChannel(ctx context.Context, guildID, channelID string) error {
	return s.guildSettings.Set(ctx, bson.M{"_id": guildID}, bson.M{"channelId": channelID})
}

func (s *MongoStore) GetBirthdayChannel(ctx context.Context, guildID string) (string, error) {
	settings, err := s.guildSettings.Get(ctx, bson.M{"_id": guildID})
	if err != nil || settings == nil {
		return "", err
	}
	return settings.BirthdayChannelID, nil
}

func (s *MongoStore) ListBirthdayChannels(ctx context.Context) ([]models.GuildSettings, error) {
	return s.guildSettings.GetAll(ctx, bson.M{})
}

// Birthday roles

func (s *MongoStore) UpsertBirthdayRole(ctx context.Context, role models.ActiveBirthdayRole) error {
	role.GrantedAt = role.GrantedAt.UTC()
	return s.birthdayRoles.Set(ctx, bson.M{"guildId": role.GuildID, "userId": role.UserID}, role)
}

func (s *MongoStore) ListBirthdayRoles(ctx context.Context) ([]models.ActiveBirthdayRole, error) {
	return s.birthdayRoles.GetAll(ctx, bson.M{})
}

func (s *MongoStore) DeleteBirthdayRole(ctx context.Context, guildID, userID string) error {
	_, err := s.birthdayRoles.Delete(ctx, bson.M{"guildId": guildID, "userId": userID})
	return err
}

// Log channels

func (s *MongoStore) SetLogChannel(ctx context.Context, cfg models.LogConfig) error {
	return s.logConfigs.Set(ctx, bson.M{"guildId": cfg.GuildID, "logType": cfg.LogType}, cfg)
}

func (s *MongoStore) GetLogChannel(ctx context.Context, guildID, logType string) (string, error) {
	cfg, err := s.logConfigs.Get(ctx, bson.M{"guildId": guildID, "logType": logType})
	if err != nil || cfg == nil {
		return "", err
	}
	return cfg.ChannelID, nil
}

func (s *MongoStore) ListLogChannels(ctx context.Context, guildID string) ([]models.LogConfig, error) {
	return s.logConfigs.GetAll(ctx, bson.M{"guildId": guildID}, options.Find().SetSort(bson.D{{Key: "logType", Value: 1}}))
}

func (s *MongoStore) ListAllLogChannels(ctx context.Context) ([]models.LogConfig, error) {
	return s.logConfigs.GetAll(ctx, bson.M{})
}

func (s *MongoStore) DeleteLogChannel(ctx context.Context, guildID, logType string) (bool, error) {
	return s.logConfigs.Delete(ctx, bson.M{"guildId": guildID, "logType": logType})
}

// Suggestions

func (s *MongoStore) AddSuggestion(ctx context.Context, sug *models.Suggestion) error {
	id, err := s.nextSequence(ctx, "suggestions")
	if err != nil {
		return err
	}
	sug.ID = id
	if sug.Status == "" {
		sug.Status = models.SuggestionPending
	}
	if sug.CreatedAt.IsZero() {
		sug.CreatedAt = time.Now()
	}
	sug.CreatedAt = sug.CreatedAt.UTC()
	return s.suggestions.Insert(ctx, sug)
}

func (s *MongoStore) GetSuggestion(ctx context.Context, id int64) (*models.Suggestion, error) {
	return s.suggestions.Get(ctx, bson.M{"_id": id})
}

func (s *MongoStore) UpdateSuggestionStatus(ctx context.Context, id int64, from, to models.SuggestionStatus) (bool, error) {
	return s.suggestions.Update(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
}

func (s *MongoStore) ListSuggestions(ctx context.Context) ([]models.Suggestion, error) {
	return s.suggestions.GetAll(ctx, bson.M{}, newestFirst())
}

func (s *MongoStore) Status() (string, bool) {
	return s.db.GetStatus()
}

func (s *MongoStore) Close() error {
	return s.db.Disconnect()
}

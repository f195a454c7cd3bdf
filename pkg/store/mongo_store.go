package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/db"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
)

type MongoStore struct {
	db     *mongo.Database
	limits Limits
	now    func() time.Time
}

func NewMongoStore(database *mongo.Database, limits Limits) *MongoStore {
	return &MongoStore{db: database, limits: limits.withDefaults(), now: time.Now}
}

func (s *MongoStore) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func mongoErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = ErrNotFound
	}
	return common.NewStoreError(op, err)
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	devices, err := findAll[models.Device](ctx, s.col(db.CollectionDevices), bson.D{},
		options.Find().SetSort(bson.D{{Key: "deviceId", Value: 1}}))
	if err != nil {
		return nil, mongoErr("list devices", err)
	}
	return devices, nil
}

func (s *MongoStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	err := s.col(db.CollectionDevices).FindOne(ctx, bson.M{"deviceId": deviceID}).Decode(&device)
	if err != nil {
		return nil, mongoErr("get device", err)
	}
	return &device, nil
}

func (s *MongoStore) UpsertDevice(ctx context.Context, deviceID string, fields DeviceFields) (*models.Device, bool, error) {
	now := s.now()

	set := bson.M{"updatedAt": now}
	onInsert := bson.M{"createdAt": now}
	if fields.Name != nil {
		set["name"] = *fields.Name
	} else {
		onInsert["name"] = ""
	}
	if fields.Category != nil {
		set["category"] = *fields.Category
	} else {
		onInsert["category"] = ""
	}
	if fields.Online != nil {
		set["online"] = *fields.Online
	} else {
		onInsert["online"] = false
	}

	res, err := s.col(db.CollectionDevices).UpdateOne(ctx,
		bson.M{"deviceId": deviceID},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, mongoErr("upsert device", err)
	}

	device, err := s.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, false, err
	}
	return device, res.UpsertedCount == 1, nil
}

func (s *MongoStore) SetDeviceOnline(ctx context.Context, deviceID string, online bool) error {
	_, err := s.col(db.CollectionDevices).UpdateOne(ctx,
		bson.M{"deviceId": deviceID},
		bson.M{"$set": bson.M{"online": online, "updatedAt": s.now()}},
	)
	if err != nil {
		return mongoErr("set device online", err)
	}
	return nil
}

func (s *MongoStore) DeleteDevice(ctx context.Context, deviceID string) error {
	if _, err := s.col(db.CollectionDevices).DeleteOne(ctx, bson.M{"deviceId": deviceID}); err != nil {
		return mongoErr("delete device", err)
	}
	return nil
}

func (s *MongoStore) InsertReading(ctx context.Context, reading *models.EnergyReading) error {
	now := s.now()
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}
	reading.CreatedAt = now

	if _, err := s.col(db.CollectionReadings).InsertOne(ctx, reading); err != nil {
		return mongoErr("insert reading", err)
	}
	return nil
}

func (s *MongoStore) QueryReadings(ctx context.Context, filter ReadingFilter) ([]models.EnergyReading, error) {
	q := bson.M{}
	if filter.DeviceID != "" {
		q["deviceId"] = filter.DeviceID
	}
	if !filter.Since.IsZero() {
		q["timestamp"] = bson.M{"$gte": filter.Since}
	}

	readings, err := findAll[models.EnergyReading](ctx, s.col(db.CollectionReadings), q,
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(int64(capLimit(filter.Limit, s.limits.Readings))))
	if err != nil {
		return nil, mongoErr("query readings", err)
	}
	return readings, nil
}

func (s *MongoStore) DeleteReadings(ctx context.Context, deviceID string) (int64, error) {
	res, err := s.col(db.CollectionReadings).DeleteMany(ctx, bson.M{"deviceId": deviceID})
	if err != nil {
		return 0, mongoErr("delete readings", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) UpsertPrediction(ctx context.Context, prediction *models.MonthlyPrediction) (bool, error) {
	now := s.now()
	key := bson.M{"deviceId": prediction.DeviceID, "year": prediction.Year, "month": prediction.Month}

	set := bson.M{
		"predictedConsumption": prediction.PredictedConsumption,
		"predictedCost":        prediction.PredictedCost,
		"kwhPrice":             prediction.KwhPrice,
		"updatedAt":            now,
	}
	if prediction.ActualConsumption != nil {
		set["actualConsumption"] = *prediction.ActualConsumption
	}
	if prediction.ActualCost != nil {
		set["actualCost"] = *prediction.ActualCost
	}

	var stored models.MonthlyPrediction
	err := s.col(db.CollectionPredictions).FindOneAndUpdate(ctx, key,
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": uuid.NewString(), "createdAt": now}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&stored)

	updated := true
	if errors.Is(err, mongo.ErrNoDocuments) {
		updated = false
	} else if err != nil {
		return false, mongoErr("upsert prediction", err)
	}

	if updated {
		prediction.ID = stored.ID
		prediction.CreatedAt = stored.CreatedAt
	} else {
		var inserted models.MonthlyPrediction
		if err := s.col(db.CollectionPredictions).FindOne(ctx, key).Decode(&inserted); err != nil {
			return false, mongoErr("upsert prediction", err)
		}
		prediction.ID = inserted.ID
		prediction.CreatedAt = inserted.CreatedAt
	}
	prediction.UpdatedAt = now
	return updated, nil
}

func (s *MongoStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]models.MonthlyPrediction, error) {
	q := bson.M{}
	if filter.DeviceID != "" {
		q["deviceId"] = filter.DeviceID
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	if filter.Month != 0 {
		q["month"] = filter.Month
	}

	predictions, err := findAll[models.MonthlyPrediction](ctx, s.col(db.CollectionPredictions), q,
		options.Find().SetSort(bson.D{
			{Key: "year", Value: -1},
			{Key: "month", Value: -1},
			{Key: "deviceId", Value: 1},
		}))
	if err != nil {
		return nil, mongoErr("list predictions", err)
	}
	return predictions, nil
}

func (s *MongoStore) DeletePredictions(ctx context.Context, deviceID string) (int64, error) {
	res, err := s.col(db.CollectionPredictions).DeleteMany(ctx, bson.M{"deviceId": deviceID})
	if err != nil {
		return 0, mongoErr("delete predictions", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) GetOrCreateSettings(ctx context.Context, defaults models.Settings) (*models.Settings, error) {
	now := s.now()
	defaults.ID = models.SettingsID
	defaults.CreatedAt = now
	defaults.UpdatedAt = now

	var settings models.Settings
	err := s.col(db.CollectionSettings).FindOneAndUpdate(ctx,
		bson.M{"_id": models.SettingsID},
		bson.M{"$setOnInsert": defaults},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&settings)
	if err != nil {
		return nil, mongoErr("get settings", err)
	}
	return &settings, nil
}

func (s *MongoStore) UpdateSettings(ctx context.Context, update SettingsUpdate) (*models.Settings, error) {
	settings, err := s.GetOrCreateSettings(ctx, models.DefaultSettings())
	if err != nil {
		return nil, err
	}

	update.Apply(settings)
	settings.UpdatedAt = s.now()

	_, err = s.col(db.CollectionSettings).ReplaceOne(ctx, bson.M{"_id": models.SettingsID}, settings)
	if err != nil {
		return nil, mongoErr("update settings", err)
	}
	return settings, nil
}

func (s *MongoStore) InsertNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	stampNotifications(notifications, s.now())

	docs := make([]any, len(notifications))
	for i := range notifications {
		docs[i] = notifications[i]
	}
	if _, err := s.col(db.CollectionNotifications).InsertMany(ctx, docs); err != nil {
		return mongoErr("insert notifications", err)
	}
	return nil
}

func (s *MongoStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	q := bson.M{}
	if filter.UnreadOnly {
		q["read"] = false
	}
	if !filter.Since.IsZero() {
		q["createdAt"] = bson.M{"$gte": filter.Since}
	}
	if filter.DeviceID != "" {
		q["deviceId"] = filter.DeviceID
	}
	if filter.Type != "" {
		q["type"] = filter.Type
	}

	notifications, err := findAll[models.Notification](ctx, s.col(db.CollectionNotifications), q,
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(int64(capLimit(filter.Limit, s.limits.Notifications))))
	if err != nil {
		return nil, mongoErr("list notifications", err)
	}
	return notifications, nil
}

func (s *MongoStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.col(db.CollectionNotifications).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true, "readAt": s.now()}},
	)
	if err != nil {
		return mongoErr("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return mongoErr("mark notification read", ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteNotification(ctx context.Context, id string) error {
	res, err := s.col(db.CollectionNotifications).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr("delete notification", err)
	}
	if res.DeletedCount == 0 {
		return mongoErr("delete notification", ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	if stats.Devices, err = s.col(db.CollectionDevices).CountDocuments(ctx, bson.D{}); err != nil {
		return stats, mongoErr("stats", err)
	}
	if stats.Readings, err = s.col(db.CollectionReadings).CountDocuments(ctx, bson.D{}); err != nil {
		return stats, mongoErr("stats", err)
	}

	var last models.EnergyReading
	err = s.col(db.CollectionReadings).FindOne(ctx, bson.D{},
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return stats, mongoErr("stats", err)
	default:
		ts := last.Timestamp
		stats.LastReading = &ts
	}
	return stats, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

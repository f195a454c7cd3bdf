package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	constant "liyu1981.xyz/energy-monitor-service/pkg/common"
)

const (
	CollectionDevices       = "devices"
	CollectionReadings      = "energy_readings"
	CollectionPredictions   = "monthly_predictions"
	CollectionSettings      = "settings"
	CollectionNotifications = "notifications"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo connects, pings and ensures the indexes the store relies on.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoDB, error) {
	logger := constant.GetLoggerWith(
		constant.LoggerNameStore,
		zap.String(constant.LoggerFieldStoreBackend, "mongodb"),
	)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to mongodb", zap.String("database", database))

	m := &MongoDB{Client: client, Database: client.Database(database)}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Mongodb indexes ensured")
	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionDevices: {
			{Keys: bson.D{{Key: "deviceId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionReadings: {
			{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		CollectionPredictions: {
			{
				Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		CollectionNotifications: {
			{Keys: bson.D{{Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := m.Database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

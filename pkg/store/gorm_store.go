package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/db"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
)

type GormStore struct {
	db      *db.DB
	limits  Limits
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewGormStore(d *db.DB, limits Limits) *GormStore {
	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldStoreBackend, d.Conn.Dialector.Name()),
	)

	settings := gobreaker.Settings{
		Name:        "StoreCircuitBreaker",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanentError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &GormStore{
		db:      d,
		limits:  limits.withDefaults(),
		breaker: gobreaker.NewCircuitBreaker(settings),
		now:     time.Now,
	}
}

// permanentErrors say nothing about the health of the database and never
// trip the breaker.
var permanentErrors = []error{
	gorm.ErrRecordNotFound,
	ErrNotFound,
	gorm.ErrDuplicatedKey,
	gorm.ErrForeignKeyViolated,
	gorm.ErrCheckConstraintViolated,
	gorm.ErrInvalidData,
	gorm.ErrInvalidValue,
	gorm.ErrInvalidField,
	gorm.ErrMissingWhereClause,
	gorm.ErrPrimaryKeyRequired,
}

// isPermanentError reports bad-data and not-found failures. Driver errors
// count when their SQLSTATE class is 22 (data exception) or 23 (integrity
// constraint violation); connection failures never do.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return isDataStateClass(string(mysqlErr.SQLState[:]))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isDataStateClass(pgErr.Code)
	}
	switch sqliteResultCode(err) {
	case sqliteTooBig, sqliteConstraint, sqliteMismatch:
		return true
	}
	return false
}

// SQLite primary result codes, https://www.sqlite.org/rescode.html.
const (
	sqliteTooBig     = 18
	sqliteConstraint = 19
	sqliteMismatch   = 20
)

// sqliteResultCode reads the primary code off a sqlite driver error the way
// the gorm sqlite dialector does, without importing the cgo-only error type.
// Other errors report 0.
func sqliteResultCode(err error) int {
	raw, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return 0
	}
	var sqliteErr struct {
		Code         int `json:"Code"`
		ExtendedCode int `json:"ExtendedCode"`
	}
	if json.Unmarshal(raw, &sqliteErr) != nil || sqliteErr.ExtendedCode == 0 {
		return 0
	}
	return sqliteErr.Code
}

func isDataStateClass(state string) bool {
	return strings.HasPrefix(state, "22") || strings.HasPrefix(state, "23")
}

// byNewest quotes the column; read and timestamp are keywords on some
// backends.
func byNewest(column string) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}
}

func (s *GormStore) exec(ctx context.Context, op string, fn func(*gorm.DB) error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn(s.db.Conn.WithContext(ctx))
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	return common.NewStoreError(op, err)
}

func (s *GormStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := s.exec(ctx, "list devices", func(tx *gorm.DB) error {
		return tx.Order("device_id").Find(&devices).Error
	})
	return devices, err
}

func (s *GormStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	err := s.exec(ctx, "get device", func(tx *gorm.DB) error {
		return tx.First(&device, "device_id = ?", deviceID).Error
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *GormStore) UpsertDevice(ctx context.Context, deviceID string, fields DeviceFields) (*models.Device, bool, error) {
	var device models.Device
	created := false

	err := s.exec(ctx, "upsert device", func(tx *gorm.DB) error {
		err := tx.First(&device, "device_id = ?", deviceID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		if err != nil {
			device = models.Device{DeviceID: deviceID, CreatedAt: now, UpdatedAt: now}
			fields.apply(&device)
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&device)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				created = true
				return nil
			}
			// lost the insert race, merge into the winner's row
		}

		updates := map[string]any{"updated_at": now}
		if fields.Name != nil {
			updates["name"] = *fields.Name
		}
		if fields.Category != nil {
			updates["category"] = *fields.Category
		}
		if fields.Online != nil {
			updates["online"] = *fields.Online
		}
		if err := tx.Model(&models.Device{}).Where("device_id = ?", deviceID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&device, "device_id = ?", deviceID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &device, created, nil
}

// SetDeviceOnline only touches an existing row; a device removed in the
// meantime stays removed.
func (s *GormStore) SetDeviceOnline(ctx context.Context, deviceID string, online bool) error {
	return s.exec(ctx, "set device online", func(tx *gorm.DB) error {
		return tx.Model(&models.Device{}).
			Where("device_id = ?", deviceID).
			Updates(map[string]any{"online": online, "updated_at": s.now()}).Error
	})
}

func (s *GormStore) DeleteDevice(ctx context.Context, deviceID string) error {
	return s.exec(ctx, "delete device", func(tx *gorm.DB) error {
		return tx.Where("device_id = ?", deviceID).Delete(&models.Device{}).Error
	})
}

func (s *GormStore) InsertReading(ctx context.Context, reading *models.EnergyReading) error {
	now := s.now()
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}
	reading.CreatedAt = now

	return s.exec(ctx, "insert reading", func(tx *gorm.DB) error {
		return tx.Create(reading).Error
	})
}

func (s *GormStore) QueryReadings(ctx context.Context, filter ReadingFilter) ([]models.EnergyReading, error) {
	var readings []models.EnergyReading
	err := s.exec(ctx, "query readings", func(tx *gorm.DB) error {
		q := tx.Model(&models.EnergyReading{})
		if filter.DeviceID != "" {
			q = q.Where("device_id = ?", filter.DeviceID)
		}
		if !filter.Since.IsZero() {
			q = q.Where(clause.Gte{Column: "timestamp", Value: filter.Since})
		}
		return q.Order(byNewest("timestamp")).
			Limit(capLimit(filter.Limit, s.limits.Readings)).
			Find(&readings).Error
	})
	return readings, err
}

func (s *GormStore) DeleteReadings(ctx context.Context, deviceID string) (int64, error) {
	var deleted int64
	err := s.exec(ctx, "delete readings", func(tx *gorm.DB) error {
		res := tx.Where("device_id = ?", deviceID).Delete(&models.EnergyReading{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (s *GormStore) UpsertPrediction(ctx context.Context, prediction *models.MonthlyPrediction) (bool, error) {
	updated := false
	err := s.exec(ctx, "upsert prediction", func(tx *gorm.DB) error {
		var existing models.MonthlyPrediction
		err := tx.Where("device_id = ? AND year = ? AND month = ?",
			prediction.DeviceID, prediction.Year, prediction.Month).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		if err == nil {
			updated = true
			prediction.ID = existing.ID
			prediction.CreatedAt = existing.CreatedAt
		} else {
			prediction.ID = uuid.NewString()
			prediction.CreatedAt = now
		}
		prediction.UpdatedAt = now

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"predicted_consumption",
				"predicted_cost",
				"kwh_price",
				"actual_consumption",
				"actual_cost",
				"updated_at",
			}),
		}).Create(prediction).Error
	})
	return updated, err
}

func (s *GormStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]models.MonthlyPrediction, error) {
	var predictions []models.MonthlyPrediction
	err := s.exec(ctx, "list predictions", func(tx *gorm.DB) error {
		q := tx.Model(&models.MonthlyPrediction{})
		if filter.DeviceID != "" {
			q = q.Where("device_id = ?", filter.DeviceID)
		}
		if filter.Year != 0 {
			q = q.Where("year = ?", filter.Year)
		}
		if filter.Month != 0 {
			q = q.Where("month = ?", filter.Month)
		}
		return q.Order("year desc").Order("month desc").Order("device_id").Find(&predictions).Error
	})
	return predictions, err
}

func (s *GormStore) DeletePredictions(ctx context.Context, deviceID string) (int64, error) {
	var deleted int64
	err := s.exec(ctx, "delete predictions", func(tx *gorm.DB) error {
		res := tx.Where("device_id = ?", deviceID).Delete(&models.MonthlyPrediction{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (s *GormStore) GetOrCreateSettings(ctx context.Context, defaults models.Settings) (*models.Settings, error) {
	var settings models.Settings
	err := s.exec(ctx, "get settings", func(tx *gorm.DB) error {
		err := tx.First(&settings, "id = ?", models.SettingsID).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		defaults.ID = models.SettingsID
		defaults.CreatedAt = now
		defaults.UpdatedAt = now
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
			return err
		}
		return tx.First(&settings, "id = ?", models.SettingsID).Error
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *GormStore) UpdateSettings(ctx context.Context, update SettingsUpdate) (*models.Settings, error) {
	settings, err := s.GetOrCreateSettings(ctx, models.DefaultSettings())
	if err != nil {
		return nil, err
	}

	update.Apply(settings)
	settings.UpdatedAt = s.now()

	err = s.exec(ctx, "update settings", func(tx *gorm.DB) error {
		return tx.Save(settings).Error
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *GormStore) InsertNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	stampNotifications(notifications, s.now())

	return s.exec(ctx, "insert notifications", func(tx *gorm.DB) error {
		return tx.Create(&notifications).Error
	})
}

func stampNotifications(notifications []models.Notification, now time.Time) {
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Timestamp.IsZero() {
			n.Timestamp = now
		}
		n.CreatedAt = now
	}
}

func (s *GormStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.exec(ctx, "list notifications", func(tx *gorm.DB) error {
		q := tx.Model(&models.Notification{})
		if filter.UnreadOnly {
			q = q.Where(clause.Eq{Column: "read", Value: false})
		}
		if !filter.Since.IsZero() {
			q = q.Where(clause.Gte{Column: "created_at", Value: filter.Since})
		}
		if filter.DeviceID != "" {
			q = q.Where("device_id = ?", filter.DeviceID)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		return q.Order(byNewest("created_at")).
			Limit(capLimit(filter.Limit, s.limits.Notifications)).
			Find(&notifications).Error
	})
	return notifications, err
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, id string) error {
	return s.exec(ctx, "mark notification read", func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ?", id).
			Updates(map[string]any{"read": true, "read_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) DeleteNotification(ctx context.Context, id string) error {
	return s.exec(ctx, "delete notification", func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.exec(ctx, "stats", func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).Count(&stats.Devices).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.EnergyReading{}).Count(&stats.Readings).Error; err != nil {
			return err
		}

		var last models.EnergyReading
		err := tx.Order(byNewest("timestamp")).Limit(1).Find(&last).Error
		if err != nil {
			return err
		}
		if last.ID != "" {
			ts := last.Timestamp
			stats.LastReading = &ts
		}
		return nil
	})
	return stats, err
}

func (s *GormStore) Close() error {
	return s.db.Close()
}

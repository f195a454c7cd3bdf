package models

import "time"

type NotificationType string

const (
	NotificationTypeHighConsumption NotificationType = "high-consumption"
	NotificationTypeGoalExceeded    NotificationType = "goal-exceeded"
	NotificationTypeDeviceOffline   NotificationType = "device-offline"
	NotificationTypeEnergySaving    NotificationType = "energy-saving"
)

type TariffType string

const (
	TariffTypeConventional TariffType = "conventional"
	TariffTypeWhite        TariffType = "white"
	TariffTypeGreen        TariffType = "green"
)

// SettingsID is the fixed key of the single global settings document.
const SettingsID = "global"

type Device struct {
	DeviceID  string    `gorm:"primaryKey;type:varchar(64)" bson:"deviceId" json:"deviceId"`
	Name      string    `bson:"name" json:"name"`
	Category  string    `bson:"category" json:"category"`
	Online    bool      `bson:"online" json:"online"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EnergyReading is one immutable sample in canonical units: W, V, mA, kWh.
type EnergyReading struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	DeviceID  string    `gorm:"index:idx_readings_device_ts,priority:1;type:varchar(64)" bson:"deviceId" json:"deviceId"`
	Timestamp time.Time `gorm:"index:idx_readings_device_ts,priority:2" bson:"timestamp" json:"timestamp"`
	Power     float64   `bson:"power" json:"power"`
	Voltage   float64   `bson:"voltage" json:"voltage"`
	Current   float64   `bson:"current" json:"current"`
	Energy    float64   `bson:"totalEnergy" json:"totalEnergy"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type MonthlyPrediction struct {
	ID                   string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	DeviceID             string    `gorm:"uniqueIndex:idx_prediction_key,priority:1;type:varchar(64)" bson:"deviceId" json:"deviceId"`
	Year                 int       `gorm:"uniqueIndex:idx_prediction_key,priority:2" bson:"year" json:"year"`
	Month                int       `gorm:"uniqueIndex:idx_prediction_key,priority:3" bson:"month" json:"month"`
	PredictedConsumption float64   `bson:"predictedConsumption" json:"predictedConsumption"`
	PredictedCost        float64   `bson:"predictedCost" json:"predictedCost"`
	KwhPrice             float64   `bson:"kwhPrice" json:"kwhPrice"`
	ActualConsumption    *float64  `bson:"actualConsumption,omitempty" json:"actualConsumption,omitempty"`
	ActualCost           *float64  `bson:"actualCost,omitempty" json:"actualCost,omitempty"`
	CreatedAt            time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt" json:"updatedAt"`
}

type NotificationToggles struct {
	HighConsumption bool `bson:"highConsumption" json:"highConsumption"`
	GoalExceeded    bool `bson:"goalExceeded" json:"goalExceeded"`
	DeviceOffline   bool `bson:"deviceOffline" json:"deviceOffline"`
	DailyReport     bool `bson:"dailyReport" json:"dailyReport"`
}

type PeakHours struct {
	Start string  `bson:"start" json:"start"`
	End   string  `bson:"end" json:"end"`
	Price float64 `bson:"price" json:"price"`
}

type Settings struct {
	ID                       string              `gorm:"primaryKey;type:varchar(16)" bson:"_id" json:"id"`
	KwhPrice                 float64             `bson:"kwhPrice" json:"kwhPrice"`
	Currency                 string              `bson:"currency" json:"currency"`
	Timezone                 string              `bson:"timezone" json:"timezone"`
	MonthlyGoal              float64             `bson:"monthlyGoal" json:"monthlyGoal"`
	HighConsumptionThreshold float64             `bson:"highConsumptionThreshold" json:"highConsumptionThreshold"`
	Notifications            NotificationToggles `gorm:"embedded;embeddedPrefix:notify_" bson:"notifications" json:"notifications"`
	TariffType               TariffType          `gorm:"type:varchar(20)" bson:"tariffType" json:"tariffType"`
	PeakHours                PeakHours           `gorm:"embedded;embeddedPrefix:peak_" bson:"peakHours" json:"peakHours"`
	CreatedAt                time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type Notification struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Type      NotificationType `gorm:"type:varchar(20);index;check:type IN ('high-consumption','goal-exceeded','device-offline','energy-saving')" bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	DeviceID  *string          `gorm:"index;type:varchar(64)" bson:"deviceId,omitempty" json:"deviceId,omitempty"`
	Value     *float64         `bson:"value,omitempty" json:"value,omitempty"`
	Read      bool             `gorm:"index" bson:"read" json:"read"`
	ReadAt    *time.Time       `bson:"readAt,omitempty" json:"readAt,omitempty"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
	CreatedAt time.Time        `gorm:"index" bson:"createdAt" json:"createdAt"`
}

// DefaultSettings mirrors the values the dashboard shipped with.
func DefaultSettings() Settings {
	return Settings{
		ID:                       SettingsID,
		KwhPrice:                 0.65,
		Currency:                 "BRL",
		Timezone:                 "America/Sao_Paulo",
		MonthlyGoal:              300,
		HighConsumptionThreshold: 500,
		Notifications: NotificationToggles{
			HighConsumption: true,
			GoalExceeded:    true,
			DeviceOffline:   true,
			DailyReport:     false,
		},
		TariffType: TariffTypeConventional,
		PeakHours: PeakHours{
			Start: "18:00",
			End:   "21:00",
			Price: 0.85,
		},
	}
}

// Period is a readings look-back window.
type Period string

const (
	Period1h  Period = "1h"
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	PeriodAll Period = "all"
)

// LiveDevice is a vendor device merged with its saved name and current
// normalized status.
type LiveDevice struct {
	DeviceID    string    `json:"deviceId"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Online      bool      `json:"online"`
	Power       float64   `json:"power"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	TotalEnergy float64   `json:"totalEnergy"`
	LastUpdate  time.Time `json:"lastUpdate"`
}

type DiscoveryResult struct {
	Discovered []Device `json:"discovered"`
	TotalFound int      `json:"totalFound"`
	NewDevices int      `json:"newDevices"`
}

type DeleteResult struct {
	DeviceID    string `json:"deviceId"`
	Readings    int64  `json:"readings"`
	Predictions int64  `json:"predictions"`
}

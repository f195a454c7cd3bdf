package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

type DBConfig struct {
	Type          string
	Path          string
	DSN           string
	MongoDatabase string
}

type VendorConfig struct {
	Endpoint     string
	AccessID     string
	AccessSecret string
	AccountID    string
	HTTPTimeout  time.Duration
	Rate         float64
	Burst        int
	RefreshSkew  time.Duration
	ScaleFile    string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type CollectorConfig struct {
	Schedule             string
	NotificationSchedule string
	Concurrency          int
	DeviceTimeout        time.Duration
	// DeviceSource is "registry" (stored devices) or "vendor" (account list)
	DeviceSource string
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

type Config struct {
	DB        DBConfig
	Vendor    VendorConfig
	Redis     RedisConfig
	Collector CollectorConfig
	MQTT      MQTTConfig

	HttpHostPort string
	GrpcHostPort string
	DefaultRate  float64
	DefaultBurst int

	ReadingsLimit      int
	NotificationsLimit int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(common.EnvKeyIOTDBType, "file")
	v.SetDefault(common.EnvKeyIOTDbPath, "metrics.db")
	v.SetDefault(common.EnvKeyMongoDatabase, "monitor_energia")
	v.SetDefault(common.EnvKeyIOTHttpHostPort, ":1080")
	v.SetDefault(common.EnvKeyIOTDefaultRate, 1.0)
	v.SetDefault(common.EnvKeyIOTDefaultBurst, 5)

	v.SetDefault(common.EnvKeyTuyaEndpoint, "https://openapi.tuyaus.com")
	v.SetDefault(common.EnvKeyTuyaHttpTimeout, 5*time.Second)
	v.SetDefault(common.EnvKeyTuyaRate, 10.0)
	v.SetDefault(common.EnvKeyTuyaBurst, 10)
	v.SetDefault(common.EnvKeyTuyaRefreshSkew, 60*time.Second)

	v.SetDefault(common.EnvKeyCronSchedule, "*/5 * * * *")
	v.SetDefault(common.EnvKeyNotificationSchedule, "*/15 * * * *")
	v.SetDefault(common.EnvKeyCollectorConcurrency, 4)
	v.SetDefault(common.EnvKeyCollectorTimeout, 10*time.Second)
	v.SetDefault(common.EnvKeyCollectorSource, "registry")

	v.SetDefault(common.EnvKeyReadingsLimit, 1000)
	v.SetDefault(common.EnvKeyNotificationsLim, 20)

	v.SetDefault(common.EnvKeyMQTTClientID, "energy-monitor")
	v.SetDefault(common.EnvKeyMQTTTopic, "energy/readings/{device_id}")
}

// Load reads .env (when present) and the process environment. Under go test
// only the process environment counts.
func Load() (*Config, error) {
	if common.IsTestEnv() {
		return FromViper(NewViper())
	}
	if err := godotenv.Load(); err != nil {
		common.GetLogger().Warn("No .env file loaded, using process environment only")
	}
	return FromViper(NewViper())
}

// NewViper returns a viper bound to the environment with every default set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DB: DBConfig{
			Type:          strings.TrimSpace(v.GetString(common.EnvKeyIOTDBType)),
			Path:          v.GetString(common.EnvKeyIOTDbPath),
			DSN:           strings.TrimSpace(v.GetString(common.EnvKeyIOTDbDSN)),
			MongoDatabase: v.GetString(common.EnvKeyMongoDatabase),
		},
		Vendor: VendorConfig{
			Endpoint:     strings.TrimRight(strings.TrimSpace(v.GetString(common.EnvKeyTuyaEndpoint)), "/"),
			AccessID:     strings.TrimSpace(v.GetString(common.EnvKeyTuyaAccessID)),
			AccessSecret: strings.TrimSpace(v.GetString(common.EnvKeyTuyaAccessSecret)),
			AccountID:    strings.TrimSpace(v.GetString(common.EnvKeyTuyaAccountID)),
			HTTPTimeout:  v.GetDuration(common.EnvKeyTuyaHttpTimeout),
			Rate:         v.GetFloat64(common.EnvKeyTuyaRate),
			Burst:        v.GetInt(common.EnvKeyTuyaBurst),
			RefreshSkew:  v.GetDuration(common.EnvKeyTuyaRefreshSkew),
			ScaleFile:    strings.TrimSpace(v.GetString(common.EnvKeyTuyaScaleFile)),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString(common.EnvKeyRedisAddr)),
			Password: v.GetString(common.EnvKeyRedisPassword),
		},
		Collector: CollectorConfig{
			Schedule:             strings.TrimSpace(v.GetString(common.EnvKeyCronSchedule)),
			NotificationSchedule: strings.TrimSpace(v.GetString(common.EnvKeyNotificationSchedule)),
			Concurrency:          v.GetInt(common.EnvKeyCollectorConcurrency),
			DeviceTimeout:        v.GetDuration(common.EnvKeyCollectorTimeout),
			DeviceSource:         strings.TrimSpace(v.GetString(common.EnvKeyCollectorSource)),
		},
		MQTT: MQTTConfig{
			Broker:   strings.TrimSpace(v.GetString(common.EnvKeyMQTTBroker)),
			ClientID: v.GetString(common.EnvKeyMQTTClientID),
			Username: v.GetString(common.EnvKeyMQTTUsername),
			Password: v.GetString(common.EnvKeyMQTTPassword),
			Topic:    v.GetString(common.EnvKeyMQTTTopic),
		},
		HttpHostPort:       strings.TrimSpace(v.GetString(common.EnvKeyIOTHttpHostPort)),
		GrpcHostPort:       strings.TrimSpace(v.GetString(common.EnvKeyIOTGrpcHostPort)),
		DefaultRate:        v.GetFloat64(common.EnvKeyIOTDefaultRate),
		DefaultBurst:       v.GetInt(common.EnvKeyIOTDefaultBurst),
		ReadingsLimit:      v.GetInt(common.EnvKeyReadingsLimit),
		NotificationsLimit: v.GetInt(common.EnvKeyNotificationsLim),
	}
	return cfg, cfg.Validate()
}

// Validate fails fast on settings that would make every collection cycle fail.
func (c *Config) Validate() error {
	var errs []error
	if c.Vendor.AccessID == "" {
		errs = append(errs, common.NewConfigError(common.EnvKeyTuyaAccessID+" is not set"))
	}
	if c.Vendor.AccessSecret == "" {
		errs = append(errs, common.NewConfigError(common.EnvKeyTuyaAccessSecret+" is not set"))
	}
	if c.Vendor.Endpoint == "" {
		errs = append(errs, common.NewConfigError(common.EnvKeyTuyaEndpoint+" is empty"))
	}
	if c.Collector.Schedule == "" {
		errs = append(errs, common.NewConfigError(common.EnvKeyCronSchedule+" is empty"))
	}
	if c.Collector.Concurrency <= 0 {
		errs = append(errs, common.NewConfigError(common.EnvKeyCollectorConcurrency+" must be positive"))
	}
	switch c.Collector.DeviceSource {
	case "registry":
	case "vendor":
		if c.Vendor.AccountID == "" {
			errs = append(errs, common.NewConfigError(common.EnvKeyTuyaAccountID+" is required when "+common.EnvKeyCollectorSource+" is vendor"))
		}
	default:
		errs = append(errs, common.NewConfigError("unknown "+common.EnvKeyCollectorSource+": "+c.Collector.DeviceSource))
	}
	if c.ReadingsLimit <= 0 || c.NotificationsLimit <= 0 {
		errs = append(errs, common.NewConfigError("query limits must be positive"))
	}
	if c.DB.Type == "mongodb" && c.DB.DSN == "" {
		errs = append(errs, common.NewConfigError(common.EnvKeyIOTDbDSN+" is required for mongodb"))
	}
	return errors.Join(errs...)
}

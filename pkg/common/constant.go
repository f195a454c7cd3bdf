package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTLogDir   string = "IOT_LOG_DIR"
	EnvKeyIOTLogLevel string = "IOT_LOG_LEVEL"

	EnvKeyIOTDBType        string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath        string = "IOT_DB_PATH"
	EnvKeyIOTDbDSN         string = "IOT_DB_DSN"
	EnvKeyMongoDatabase    string = "MONGODB_DATABASE"
	EnvKeyReadingsLimit    string = "READINGS_QUERY_LIMIT"
	EnvKeyNotificationsLim string = "NOTIFICATIONS_QUERY_LIMIT"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"
	EnvKeyIOTGrpcHostPort string = "IOT_GRPC_HOST_PORT"

	EnvKeyIOTDefaultRate  string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst string = "IOT_DEFAULT_BURST"

	EnvKeyTuyaEndpoint     string = "TUYA_ENDPOINT"
	EnvKeyTuyaAccessID     string = "TUYA_ACCESS_ID"
	EnvKeyTuyaAccessSecret string = "TUYA_ACCESS_SECRET"
	EnvKeyTuyaAccountID    string = "TUYA_APP_ACCOUNT_ID"
	EnvKeyTuyaHttpTimeout  string = "TUYA_HTTP_TIMEOUT"
	EnvKeyTuyaRate         string = "TUYA_RATE"
	EnvKeyTuyaBurst        string = "TUYA_BURST"
	EnvKeyTuyaRefreshSkew  string = "TUYA_TOKEN_REFRESH_SKEW"
	EnvKeyTuyaScaleFile    string = "TUYA_SCALE_FILE"

	EnvKeyRedisAddr     string = "REDIS_ADDR"
	EnvKeyRedisPassword string = "REDIS_PASSWORD"

	EnvKeyCronSchedule         string = "CRON_SCHEDULE"
	EnvKeyNotificationSchedule string = "NOTIFICATION_SCHEDULE"
	EnvKeyCollectorConcurrency string = "COLLECTOR_CONCURRENCY"
	EnvKeyCollectorTimeout     string = "COLLECTOR_DEVICE_TIMEOUT"
	EnvKeyCollectorSource      string = "COLLECTOR_DEVICE_SOURCE"

	EnvKeyMQTTBroker   string = "MQTT_BROKER"
	EnvKeyMQTTClientID string = "MQTT_CLIENT_ID"
	EnvKeyMQTTUsername string = "MQTT_USERNAME"
	EnvKeyMQTTPassword string = "MQTT_PASSWORD"
	EnvKeyMQTTTopic    string = "MQTT_TOPIC"

	LoggerNameIOTCore       string = "iot_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameCollector     string = "collector"
	LoggerNameScheduler     string = "scheduler"
	LoggerNameVendor        string = "vendor"
	LoggerNameStore         string = "store"

	LoggerFieldIOTCategory         string = "category"
	LoggerCategoryIOTDevice        string = "device"
	LoggerCategoryIOTReading       string = "reading"
	LoggerCategoryIOTPrediction    string = "prediction"
	LoggerCategoryIOTSettings      string = "settings"
	LoggerCategoryIOTNotification  string = "notification"
	LoggerFieldCycleID             string = "cycle_id"
	LoggerFieldDeviceID            string = "device_id"
	LoggerFieldVendorPath          string = "path"
	LoggerFieldStoreBackend        string = "backend"
	LoggerCategorySchedulerCollect string = "collect"
	LoggerCategorySchedulerNotify  string = "notify"
)

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/energy-monitor-service/pkg/collector"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/config"
	"liyu1981.xyz/energy-monitor-service/pkg/db"
	iotGrpc "liyu1981.xyz/energy-monitor-service/pkg/grpc"
	iotHttp "liyu1981.xyz/energy-monitor-service/pkg/http"
	"liyu1981.xyz/energy-monitor-service/pkg/iot"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	limits := store.Limits{Readings: cfg.ReadingsLimit, Notifications: cfg.NotificationsLimit}

	if cfg.DB.Type == "mongodb" {
		m, err := db.ConnectMongo(ctx, cfg.DB.DSN, cfg.DB.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(m.Database, limits), nil
	}

	dialector, err := db.DialectorFor(cfg.DB.Type, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := db.New(dialector)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(conn, limits), nil
}

func newVendorClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) *tuya.Client {
	opts := tuya.ClientOpts{
		Endpoint:     cfg.Vendor.Endpoint,
		AccessID:     cfg.Vendor.AccessID,
		AccessSecret: cfg.Vendor.AccessSecret,
		AccountID:    cfg.Vendor.AccountID,
		HTTPTimeout:  cfg.Vendor.HTTPTimeout,
		Rate:         cfg.Vendor.Rate,
		Burst:        cfg.Vendor.Burst,
		RefreshSkew:  cfg.Vendor.RefreshSkew,
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the in-process cache still works, tokens just do not survive a restart
			logger.Warn("Redis unavailable, vendor token kept in memory only", zap.Error(err))
			_ = rdb.Close()
		} else {
			opts.TokenStore = tuya.NewRedisTokenStore(rdb, cfg.Vendor.AccessID)
			logger.Info("Vendor token shared through redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	return tuya.NewClient(opts)
}

func loadScales(cfg *config.Config) tuya.Scales {
	if cfg.Vendor.ScaleFile == "" {
		return tuya.DefaultScales()
	}
	scales, err := tuya.LoadScales(cfg.Vendor.ScaleFile)
	if err != nil {
		log.Fatalf("failed to load %s: %v", common.EnvKeyTuyaScaleFile, err)
	}
	return scales
}

func newCollector(cfg *config.Config, s store.Store, client *tuya.Client, scales tuya.Scales, logger *zap.Logger) (*collector.Collector, []func()) {
	var closers []func()

	var sinks []collector.Sink
	if cfg.MQTT.Broker != "" {
		mqttClient, err := collector.NewMQTTClient(cfg.MQTT)
		if err != nil {
			logger.Warn("MQTT sink disabled", zap.Error(err))
		} else {
			sink := collector.NewMQTTSink(mqttClient, cfg.MQTT.Topic)
			sinks = append(sinks, sink)
			closers = append(closers, sink.Close)
		}
	}

	var source collector.DeviceSource = collector.RegistrySource{Store: s}
	if cfg.Collector.DeviceSource == "vendor" {
		source = collector.VendorSource{Client: client, Store: s}
	}

	c := collector.New(s, client, collector.NewState(), collector.Options{
		Concurrency:   cfg.Collector.Concurrency,
		DeviceTimeout: cfg.Collector.DeviceTimeout,
		Scales:        scales,
		Source:        source,
		Sinks:         sinks,
		Metrics:       collector.NewMetrics(prometheus.DefaultRegisterer),
	})
	return c, closers
}

// schedulerLocation follows the timezone in the stored settings.
func schedulerLocation(ctx context.Context, iotCore *iot.IOT, logger *zap.Logger) *time.Location {
	settings, err := iotCore.Settings.Get(ctx)
	if err != nil {
		logger.Warn("Settings unavailable, scheduling in local time", zap.Error(err))
		return time.Local
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		logger.Warn("Unknown settings timezone, scheduling in local time", zap.String("timezone", settings.Timezone))
		return time.Local
	}
	return loc
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := common.GetLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	client := newVendorClient(ctx, cfg, logger)
	scales := loadScales(cfg)
	c, closers := newCollector(cfg, s, client, scales, logger)
	for _, closer := range closers {
		defer closer()
	}

	iotCore := iot.New(s, client)
	iotCore.Scales = scales
	iotCore.WithServices(iot.ServiceOpts{Collector: c})

	scheduler := collector.NewScheduler(schedulerLocation(ctx, iotCore, logger))
	collectID, err := scheduler.ScheduleCollect(cfg.Collector.Schedule, c)
	if err != nil {
		log.Fatalf("invalid %s: %v", common.EnvKeyCronSchedule, err)
	}
	if cfg.Collector.NotificationSchedule != "" {
		_, err = scheduler.ScheduleNotificationCheck(cfg.Collector.NotificationSchedule, func(ctx context.Context) error {
			_, err := iotCore.Notification.Check(ctx)
			return err
		})
		if err != nil {
			log.Fatalf("invalid %s: %v", common.EnvKeyNotificationSchedule, err)
		}
	}
	scheduler.Start()
	logger.Info("Scheduler started",
		zap.String("schedule", cfg.Collector.Schedule),
		zap.Time("next_collection", scheduler.Next(collectID)))

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		iotGrpcServer := iotGrpc.IOTServer{
			Iot:              iotCore,
			RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		}
		interceptor := iotGrpcServer.CreateRateLimitInterceptor(iotGrpc.LimitedMethods)
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		iotGrpc.RegisterCollectorServiceServer(grpcServer, &iotGrpcServer)
		logger.Info("gRPC server created with:",
			zap.String("default_limiter",
				fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("Starting gRPC server on " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("gRPC server failed to serve", zap.Error(err))
				stop()
			}
		}()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Iot:              iotCore,
		RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	httpServer := &http.Server{Addr: cfg.HttpHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	// waits for a running cycle so no reading is cut off mid-write
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler stop incomplete", zap.Error(err))
	}
	common.SyncLogger()
}

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/config"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
)

// Sink receives every reading after it has been persisted. Sink failures are
// logged and never fail the device.
type Sink interface {
	Name() string
	Publish(ctx context.Context, reading *models.EnergyReading) error
}

const DefaultTopic = "energy/readings/{device_id}"

// NewMQTTClient connects to the broker in cfg and keeps reconnecting in the
// background after a lost connection.
func NewMQTTClient(cfg config.MQTTConfig) (mqtt.Client, error) {
	logger := common.GetLoggerWith(common.LoggerNameCollector, zap.String("sink", "mqtt"))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connection established", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return client, nil
}

type MQTTSink struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTSink{client: client, topic: topic, qos: 1}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Publish(ctx context.Context, reading *models.EnergyReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := s.client.Publish(formatTopic(s.topic, reading.DeviceID), s.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

func formatTopic(pattern, deviceID string) string {
	return strings.ReplaceAll(pattern, "{device_id}", deviceID)
}

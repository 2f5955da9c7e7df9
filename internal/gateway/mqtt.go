package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds MQTT bridge configuration.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBridge publishes device state to MQTT and serves set/get commands
// from <prefix>/<device>/set and <prefix>/<device>/get topics.
type MQTTBridge struct {
	client pahomqtt.Client
	gw     *Gateway
	prefix string
	logger *slog.Logger
	unsub  func()
}

// NewMQTTBridge creates and connects an MQTT bridge.
func NewMQTTBridge(gw *Gateway, cfg MQTTConfig, logger *slog.Logger) (*MQTTBridge, error) {
	b := &MQTTBridge{
		gw:     gw,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zigbee-bridge").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publish(b.prefix+"/bridge/state", []byte("online"), true)
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to gateway events and begins publishing.
func (b *MQTTBridge) Start() {
	b.unsub = b.gw.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes and disconnects.
func (b *MQTTBridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publish(b.prefix+"/bridge/state", []byte("offline"), true)
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *MQTTBridge) handleEvent(event Event) {
	switch event.Type {
	case EventStateUpdate:
		payload, err := json.Marshal(event.Data)
		if err != nil {
			b.logger.Error("marshal state", "device", event.IEEE, "err", err)
			return
		}
		b.publish(b.prefix+"/"+b.gw.FriendlyName(event.IEEE), payload, true)
	case EventDeviceJoined, EventDeviceLeft, EventInterviewDone, EventInterviewFailed:
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		b.publish(b.prefix+"/bridge/event", payload, false)
	}
}

func (b *MQTTBridge) subscribeCommands() {
	topic := b.prefix + "/+/set"
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleSet(msg.Topic(), msg.Payload())
	})
	b.client.Subscribe(b.prefix+"/+/get", 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleGet(msg.Topic(), msg.Payload())
	})
}

func (b *MQTTBridge) handleSet(topic string, payload []byte) {
	target, ok := b.deviceFromTopic(topic, "/set")
	if !ok {
		return
	}
	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		b.logger.Warn("bad set payload", "topic", topic, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for key, value := range values {
		if err := b.gw.Set(ctx, target, key, value); err != nil {
			b.logger.Warn("set failed", "device", target, "capability", key, "err", err)
		}
	}
}

func (b *MQTTBridge) handleGet(topic string, payload []byte) {
	target, ok := b.deviceFromTopic(topic, "/get")
	if !ok {
		return
	}
	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		b.logger.Warn("bad get payload", "topic", topic, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for key := range values {
		if err := b.gw.Get(ctx, target, key); err != nil {
			b.logger.Warn("get failed", "device", target, "capability", key, "err", err)
		}
	}
}

func (b *MQTTBridge) deviceFromTopic(topic, suffix string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return "", false
	}
	target, ok := strings.CutSuffix(rest, suffix)
	if !ok || target == "" || strings.Contains(target, "/") {
		return "", false
	}
	return target, true
}

func (b *MQTTBridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			b.logger.Warn("publish failed", "topic", topic, "err", err)
		}
	}()
}

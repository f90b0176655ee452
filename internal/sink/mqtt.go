package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/eventbus"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttKeepAlive      = 60 * time.Second
	mqttQuiesce        = 250 // milliseconds
	mqttQoS            = 1
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Message is one MQTT publication.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// MQTTPublisher mirrors device events to an MQTT broker:
//
//	<prefix>/<device>/info         retained device description, cleared on removal
//	<prefix>/<device>/<attribute>  retained last value of a state attribute
//	<prefix>/<device>/action       emitted actions
//	<prefix>/status                online/offline, set as last will
type MQTTPublisher struct {
	client pahomqtt.Client
	prefix string
}

// NewMQTTPublisher creates a publisher. Call Connect before attaching it.
func NewMQTTPublisher(cfg MQTTConfig) *MQTTPublisher {
	prefix := strings.TrimRight(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "huelink"
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)
	opts.SetWill(prefix+"/status", "offline", mqttQoS, true)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		c.Publish(prefix+"/status", mqttQoS, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	})

	return newMQTTPublisher(pahomqtt.NewClient(opts), prefix)
}

func newMQTTPublisher(client pahomqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

// Connect starts connecting. With connect retry enabled paho keeps trying
// in the background, so a broker that is down at startup is not fatal.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttConnectTimeout):
		log.Warn().Msg("MQTT broker not reachable yet, retrying in background")
		return nil
	}
}

// Attach subscribes the publisher to every bus event.
func (p *MQTTPublisher) Attach(bus *eventbus.Bus) {
	bus.SubscribeAll(func(e eventbus.Event) {
		msg, ok := message(p.prefix, e)
		if !ok {
			return
		}
		p.publish(msg)
	})
}

func (p *MQTTPublisher) publish(msg Message) {
	token := p.client.Publish(msg.Topic, mqttQoS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		mqttPublishedTotal.WithLabelValues("timeout").Inc()
		log.Warn().Str("topic", msg.Topic).Msg("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		mqttPublishedTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("topic", msg.Topic).Msg("MQTT publish failed")
		return
	}
	mqttPublishedTotal.WithLabelValues("success").Inc()
}

// Close marks the service offline and disconnects.
func (p *MQTTPublisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	p.client.Publish(p.prefix+"/status", mqttQoS, true, "offline").WaitTimeout(mqttPublishTimeout)
	p.client.Disconnect(mqttQuiesce)
}

// message maps a bus event to its MQTT publication.
func message(prefix string, e eventbus.Event) (Message, bool) {
	id, _ := e.Data["device_id"].(string)

	switch e.Type {
	case eventbus.EventTypeDeviceAdded:
		return jsonMessage(fmt.Sprintf("%s/%s/info", prefix, id), e.Data, true)

	case eventbus.EventTypeDeviceRemoved:
		// an empty retained payload clears the retained info
		return Message{Topic: fmt.Sprintf("%s/%s/info", prefix, id), Retained: true}, true

	case eventbus.EventTypeState:
		attribute, _ := e.Data["attribute"].(string)
		if attribute == "" {
			return Message{}, false
		}
		return jsonMessage(fmt.Sprintf("%s/%s/%s", prefix, id, attribute), e.Data["value"], true)

	case eventbus.EventTypeAction:
		body := map[string]any{"action": e.Data["action"]}
		if v, ok := e.Data["payload"]; ok {
			body["payload"] = v
		}
		return jsonMessage(fmt.Sprintf("%s/%s/action", prefix, id), body, false)

	case eventbus.EventTypeBridge:
		bridge, _ := e.Data["bridge"].(string)
		return jsonMessage(fmt.Sprintf("%s/bridge/%s", prefix, bridge), e.Data, true)
	}
	return Message{}, false
}

func jsonMessage(topic string, v any, retained bool) (Message, bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to encode MQTT payload")
		return Message{}, false
	}
	return Message{Topic: topic, Payload: payload, Retained: retained}, true
}

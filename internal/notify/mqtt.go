// Package notify forwards session events to an MQTT broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// MQTT connection settings
const (
	KeepAlive            = 60 * time.Second
	PingTimeout          = 10 * time.Second
	ConnectTimeout       = 10 * time.Second
	MaxReconnectInterval = time.Minute
	PublishQoS           = 1
)

// publisher is the subset of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each event as JSON to <topic>/<event type>.
type MQTT struct {
	client publisher
	topic  string
}

// DialMQTT connects to broker (e.g. tcp://localhost:1883).
func DialMQTT(broker, topic string) (*MQTT, error) {
	host, _ := os.Hostname()
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("screenwatch-%s-%d", host, time.Now().Unix()))
	opts.SetKeepAlive(KeepAlive)
	opts.SetPingTimeout(PingTimeout)
	opts.SetConnectTimeout(ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(MaxReconnectInterval)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		trace.Logger(context.Background()).Warn("mqtt connection lost, reconnecting", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out after %s", broker, ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	trace.Logger(context.Background()).Info("connected to mqtt broker", "broker", broker, "topic", topic)
	return &MQTT{client: client, topic: topic}, nil
}

// Emit publishes without waiting for the broker acknowledgement. Unchanged
// tick skips are not forwarded.
func (m *MQTT) Emit(e events.Event) {
	if e.Type == events.TickSkipped && e.Reason == events.ReasonUnchanged {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	token := m.client.Publish(m.Topic(e.Type), PublishQoS, false, payload)
	go func() {
		if token.WaitTimeout(ConnectTimeout) && token.Error() != nil {
			trace.Logger(context.Background()).Warn("mqtt publish failed", "error", token.Error())
		}
	}()
}

// Topic returns the topic an event type is published on.
func (m *MQTT) Topic(t events.Type) string {
	return m.topic + "/" + string(t)
}

// Close disconnects, allowing 250ms for in-flight publishes.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

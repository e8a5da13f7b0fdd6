// Package mqtt implements satellite.Notifier over an MQTT broker: a
// side-channel publishing detections, transcripts, errors, and unhandled
// protocol events for offline inspection, independent of the single TCP
// client connection the satellite core itself serves.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Notifier publishes satellite.Notifier events to topics under a
// configured prefix. Publish failures are logged and otherwise ignored;
// they must never be fatal to the satellite's own protocol handling.
type Notifier struct {
	client mqtt.Client
	topic  string
}

// New connects to broker and returns a ready Notifier publishing under
// topic (e.g. "wyosat"), with per-event-kind subtopics appended.
func New(broker, clientID, topic string) (*Notifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", broker, err)
	}

	return &Notifier{client: client, topic: topic}, nil
}

// Close disconnects from the broker.
func (n *Notifier) Close() {
	n.client.Disconnect(250)
}

func (n *Notifier) publish(subtopic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("mqtt notifier: marshal failed", "subtopic", subtopic, "error", err)
		return
	}
	token := n.client.Publish(n.topic+"/"+subtopic, 0, false, body)
	go func() {
		if token.WaitTimeout(2*time.Second) && token.Error() != nil {
			slog.Warn("mqtt notifier: publish failed", "subtopic", subtopic, "error", token.Error())
		}
	}()
}

// PublishDetection implements satellite.Notifier.
func (n *Notifier) PublishDetection(name string, timestampMicros int64) {
	n.publish("detection", map[string]any{"name": name, "timestamp": timestampMicros})
}

// PublishTranscript implements satellite.Notifier.
func (n *Notifier) PublishTranscript(text string) {
	n.publish("transcript", map[string]any{"text": text})
}

// PublishError implements satellite.Notifier.
func (n *Notifier) PublishError(text, code string) {
	n.publish("error", map[string]any{"text": text, "code": code})
}

// PublishUnhandled implements satellite.Notifier.
func (n *Notifier) PublishUnhandled(eventType string, data map[string]any) {
	n.publish("unhandled", map[string]any{"type": eventType, "data": data})
}

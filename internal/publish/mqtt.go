package publish

import (
	"context"
	"fmt"
	"time"

	"sensorgrid/internal/models"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttKeepAlive      = 60 * time.Second
	mqttQoS            = 1
	// milliseconds
	mqttDisconnectQuiesce = 250
)

// MQTT publishes each batch as a single QoS 1 message.
type MQTT struct {
	client pahomqtt.Client
	topic  string
	log    *zap.Logger
	now    func() time.Time
}

// NewMQTT connects to broker (for example tcp://localhost:1883).
func NewMQTT(broker, clientID, topic string, log *zap.Logger) (*MQTT, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", broker, err)
	}

	return newMQTT(client, topic, log), nil
}

func newMQTT(client pahomqtt.Client, topic string, log *zap.Logger) *MQTT {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTT{
		client: client,
		topic:  topic,
		log:    log.Named("mqtt"),
		now:    time.Now,
	}
}

func (m *MQTT) Publish(ctx context.Context, batch *models.ReadingBatch) error {
	payload, err := encode(batch, m.now())
	if err != nil {
		return fmt.Errorf("mqtt: encode batch %s: %w", batch.ID, err)
	}

	token := m.client.Publish(m.topic, mqttQoS, false, payload)

	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", m.topic, err)
	}

	m.log.Debug("batch published", zap.String("topic", m.topic), zap.String("batch_id", batch.ID))
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(mqttDisconnectQuiesce)
	return nil
}

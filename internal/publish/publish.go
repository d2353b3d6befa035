package publish

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"

	"github.com/backyonatan-alt/fiftyone/internal/entity"
)

const (
	DefaultTopicPrefix = "fiftyone"
	publishTimeout     = 10 * time.Second
	disconnectQuiesce  = 250
)

// MQTTClient is the part of the paho client the publisher needs.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher pushes rendered entity states to an MQTT broker as retained
// messages:
//
//	<prefix>/<entity_id>/state         the state value
//	<prefix>/<entity_id>/attributes    the attribute map
//	<prefix>/<entity_id>/availability  "online" or "offline"
type Publisher struct {
	client MQTTClient
	prefix string
	logger *slog.Logger
	close  func()
}

// New wraps an already connected client.
func New(client MQTTClient, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{client: client, prefix: prefix, logger: logger, close: func() {}}
}

// Connect dials broker (e.g. "tcp://localhost:1883") with auto-reconnect
// and returns a publisher on top of the connection.
func Connect(broker, clientID, prefix string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clientID == "" {
		clientID = fmt.Sprintf("fiftyone-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}

	p := New(client, prefix, logger)
	p.close = func() { client.Disconnect(disconnectQuiesce) }
	return p, nil
}

// Close disconnects from the broker when the publisher owns the connection.
func (p *Publisher) Close() {
	p.close()
}

// Topic returns the topic of one entity channel.
func (p *Publisher) Topic(entityID, channel string) string {
	return p.prefix + "/" + entityID + "/" + channel
}

// Publish sends every state. It keeps going after a failed message and
// returns the joined errors.
func (p *Publisher) Publish(states []entity.State) error {
	var errs []error
	for _, s := range states {
		if err := p.publishState(s); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", s.EntityID, err))
		}
	}
	if len(errs) > 0 {
		p.logger.Warn("mqtt publish incomplete", "failed", len(errs), "total", len(states))
	} else {
		p.logger.Debug("mqtt states published", "count", len(states))
	}
	return errors.Join(errs...)
}

func (p *Publisher) publishState(s entity.State) error {
	value, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	attrs := s.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	attributes, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	availability := "offline"
	if s.Available {
		availability = "online"
	}

	if err := p.send(p.Topic(s.EntityID, "state"), value); err != nil {
		return err
	}
	if err := p.send(p.Topic(s.EntityID, "attributes"), attributes); err != nil {
		return err
	}
	return p.send(p.Topic(s.EntityID, "availability"), []byte(availability))
}

func (p *Publisher) send(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%s: publish timed out", topic)
	}
	return token.Error()
}

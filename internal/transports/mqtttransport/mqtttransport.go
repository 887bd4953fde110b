package mqtttransport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alvaroaleman/sensorconfig/internal/sensor"
	"github.com/alvaroaleman/sensorconfig/internal/transports"
)

const defaultTopic = "sensor/config"

type Opts struct {
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

func New(log *zap.Logger, opts Opts) transports.Transport {
	return &mqttTransport{log: log, opts: opts}
}

type mqttTransport struct {
	log  *zap.Logger
	opts Opts
}

func (m *mqttTransport) Name() string {
	return "mqtt"
}

func (m *mqttTransport) Handles(endpoint *url.URL) bool {
	_, ok := brokerScheme(endpoint.Scheme)
	return ok
}

// Submit connects, publishes the body once under <path>/<sensor_type> and
// disconnects.
func (m *mqttTransport) Submit(ctx context.Context, endpoint *url.URL, body []byte) (*transports.Response, error) {
	scheme, ok := brokerScheme(endpoint.Scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported scheme %q", endpoint.Scheme)
	}
	broker := fmt.Sprintf("%s://%s", scheme, endpoint.Host)
	topic := Topic(endpoint, body)

	clientID := m.opts.ClientID
	if clientID == "" {
		clientID = "sensorconfig-" + uuid.NewString()
	}
	clientOpts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			m.log.Error("Connection lost", zap.Error(err))
		})
	if m.opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(m.opts.Timeout)
	}
	if m.opts.Username != "" {
		clientOpts.SetUsername(m.opts.Username)
		clientOpts.SetPassword(m.opts.Password)
	}

	client := mqtt.NewClient(clientOpts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, &transports.TransportError{Op: "connect to", Endpoint: broker, Err: err}
	}
	defer client.Disconnect(250)
	m.log.Debug("Connected to MQTT broker", zap.String("broker", broker))

	if err := wait(ctx, client.Publish(topic, m.opts.QoS, false, body)); err != nil {
		return nil, &transports.TransportError{Op: "publish to", Endpoint: broker + "/" + topic, Err: err}
	}
	m.log.Debug("Published sensor config", zap.String("topic", topic), zap.ByteString("payload", body))

	return &transports.Response{Target: topic}, nil
}

// Topic derives the publish topic from the endpoint path and the payload's
// sensor type.
func Topic(endpoint *url.URL, body []byte) string {
	topic := strings.Trim(endpoint.Path, "/")
	if topic == "" {
		topic = defaultTopic
	}
	if config, err := sensor.Unmarshal(body); err == nil && config.Key() != "" {
		topic = topic + "/" + config.Key()
	}
	return topic
}

func brokerScheme(scheme string) (string, bool) {
	switch scheme {
	case "tcp", "mqtt":
		return "tcp", true
	case "ssl", "mqtts":
		return "ssl", true
	case "ws", "wss":
		return scheme, true
	}
	return "", false
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

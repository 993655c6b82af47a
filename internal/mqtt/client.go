package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/StormFireFox1/SunGoldMiner/internal/config"
	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"

	defaultTokenTimeout = 5 * time.Second
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("sungoldminer_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client: mqtt.NewClient(opts),
		cfg:    cfg.MQTT,
	}
}

type MQTTClient struct {
	client mqtt.Client
	cfg    config.MQTTConfig
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) BridgeInfoTopic() string {
	return fmt.Sprintf("%s/bridge/info", c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) Connect() error {
	return c.await(c.client.Connect())
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) PublishBridgeOnline() error {
	return c.publish(c.BridgeStateTopic(), MQTT_PAYLOAD_ONLINE, 0, true)
}

func (c *MQTTClient) PublishBridgeInfo() error {
	payload, err := BridgeDevice(c.baseTopic()).JSON()
	if err != nil {
		return err
	}
	return c.publish(c.BridgeInfoTopic(), payload, 0, true)
}

// PublishSnapshot publishes every measurement of one snapshot to its sensor
// state topic.
func (c *MQTTClient) PublishSnapshot(snap *analyzer_modbus.PowerSnapshot) error {
	for _, sensor := range SnapshotSensorValues(snap) {
		if err := c.publish(c.SensorStateTopic(sensor.Id), sensor.Value, 0, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *MQTTClient) publish(topic string, payload any, qos byte, retain bool) error {
	return c.await(c.client.Publish(topic, qos, retain, payload))
}

func (c *MQTTClient) await(token mqtt.Token) error {
	if !token.WaitTimeout(defaultTokenTimeout) {
		return errors.New("MQTT operation timed out")
	}
	return token.Error()
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}

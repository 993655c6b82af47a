package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("sungold_meter")
	assert.NoError(err)
	assert.Equal("sungold_meter", topic)
}

func TestCheckMQTTTopicLowercases(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("SunGold")
	assert.NoError(err)
	assert.Equal("sungold", topic)
}

func TestCheckMQTTTopicRejectsSeparators(t *testing.T) {

	assert := assert.New(t)

	_, err := CheckMQTTTopic("sungold/meter")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func validConfig() Config {
	return Config{
		PowerAnalyzerModbusTcp: PowerAnalyzerModbusTCPConfig{
			Host:          "192.168.1.10",
			Port:          502,
			UnitId:        1,
			TimeoutMillis: 1000,
		},
		MQTT: MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "sungoldminer",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: MonitorConfig{
			Enable:             true,
			PollIntervalMillis: 5000,
		},
		Port: 8080,
	}
}

func TestValidate(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(cfg.Validate())
}

func TestValidateWithoutMQTT(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.MQTT = MQTTConfig{}
	cfg.MonitorConfig.Enable = false
	assert.NoError(cfg.Validate())
}

func TestValidateRequiresAnalyzerHost(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.PowerAnalyzerModbusTcp.Host = ""
	assert.Error(cfg.Validate())
}

func TestValidateAnalyzerPortBounds(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.PowerAnalyzerModbusTcp.Port = 0
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.PowerAnalyzerModbusTcp.Port = 65536
	assert.Error(cfg.Validate())
}

func TestValidateUnitIdBounds(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.PowerAnalyzerModbusTcp.UnitId = 256
	assert.Error(cfg.Validate())
}

func TestValidateTimeoutBounds(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.PowerAnalyzerModbusTcp.TimeoutMillis = 99
	assert.Error(cfg.Validate())
}

func TestValidatePollIntervalBounds(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.MonitorConfig.PollIntervalMillis = 500
	assert.Error(cfg.Validate())
}

func TestValidateMonitorRequiresMQTTHost(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.MQTT.Host = ""
	assert.Error(cfg.Validate())
}

func TestValidateRejectsBadTopics(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.MQTT.BaseTopic = "bad/topic"
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.MQTT.HADiscoveryTopic = ""
	assert.Error(cfg.Validate())

	// discovery topic is only checked when discovery is on
	cfg.MQTT.HADiscoveryEnable = false
	assert.NoError(cfg.Validate())
}

package util

import (
	"github.com/StormFireFox1/SunGoldMiner/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		PowerAnalyzerModbusTcp: config.PowerAnalyzerModbusTCPConfig{
			Host:          "-.-.-.-",
			Port:          502,
			UnitId:        1,
			TimeoutMillis: 1000,
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "sungoldminer",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			Enable:             true,
			PollIntervalMillis: 5000,
		},
		Port: 8080,
	}
}

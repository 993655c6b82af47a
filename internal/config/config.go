package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel               zapcore.Level
	PowerAnalyzerModbusTcp PowerAnalyzerModbusTCPConfig `mapstructure:"power_analyzer_modbus_tcp"`
	MQTT                   MQTTConfig                   `mapstructure:"mqtt"`

	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type PowerAnalyzerModbusTCPConfig struct {
	Host          string
	Port          uint
	UnitId        uint   `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	Enable             bool   `mapstructure:"enable"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate checks configuration bounds. Topic normalization happens at load
// time; Validate only rejects.
func (cfg *Config) Validate() error {
	if cfg.PowerAnalyzerModbusTcp.Host == "" {
		return errors.New("config param power_analyzer_modbus_tcp.host is required (POWER_ANALYZER_IP)")
	}
	if cfg.PowerAnalyzerModbusTcp.Port == 0 || cfg.PowerAnalyzerModbusTcp.Port > 65535 {
		return errors.New("config param power_analyzer_modbus_tcp.port should be 1..65535")
	}
	if cfg.PowerAnalyzerModbusTcp.UnitId > 255 {
		return errors.New("config param power_analyzer_modbus_tcp.unit_id should be 0..255")
	}
	if cfg.PowerAnalyzerModbusTcp.TimeoutMillis < 100 {
		return errors.New("config param power_analyzer_modbus_tcp.timeout_millis should be >= 100")
	}
	if cfg.MonitorConfig.Enable && cfg.MQTT.Host == "" {
		return errors.New("config param monitor.enable requires mqtt.host")
	}
	if cfg.MonitorConfig.Enable && cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.MQTT.Host != "" {
		if _, err := CheckMQTTTopic(cfg.MQTT.BaseTopic); err != nil {
			return errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		if cfg.MQTT.HADiscoveryEnable {
			if _, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic); err != nil {
				return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
			}
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

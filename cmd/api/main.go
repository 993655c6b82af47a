package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StormFireFox1/SunGoldMiner/internal/config"
	"github.com/StormFireFox1/SunGoldMiner/internal/monitor"
	appmqtt "github.com/StormFireFox1/SunGoldMiner/internal/mqtt"
	"github.com/StormFireFox1/SunGoldMiner/internal/server"
	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	"github.com/carlmjohnson/versioninfo"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		TimeFormat: time.DateTime,
	})))

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)
	slog.Info("sungoldminer", "version", versioninfo.Short())

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	defer logger.Sync()

	reader, err := powerAnalyzerReader(cfg, logger)
	if err != nil {
		panic(err)
	}

	// optional MQTT publisher + scheduled monitor
	var mon *monitor.Monitor
	var publisher *appmqtt.MQTTClient
	if cfg.MQTT.Host != "" {
		publisher = appmqtt.CreateMQTTClient(cfg, appmqtt.OptsFromConfig(cfg), nil, nil)
		if err := publisher.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connect error: %s", err))
		}
		if err := publisher.PublishBridgeOnline(); err != nil {
			logger.Warn("bridge state publish failed", zap.Error(err))
		}
		if err := publisher.PublishBridgeInfo(); err != nil {
			logger.Warn("bridge info publish failed", zap.Error(err))
		}
		if cfg.MQTT.HADiscoveryEnable {
			bridgeDevice := appmqtt.BridgeDevice(cfg.MQTT.BaseTopic)
			sensors := append(appmqtt.BridgeSensors(bridgeDevice), appmqtt.AnalyzerSensors(bridgeDevice)...)
			if err := publisher.PublishHomeAssistantDiscovery(sensors); err != nil {
				logger.Warn("homeassistant discovery publish failed", zap.Error(err))
			}
		}
		if cfg.MonitorConfig.Enable {
			mon = monitor.NewMonitor(reader, publisher,
				time.Duration(cfg.MonitorConfig.PollIntervalMillis)*time.Millisecond, logger)
			if err := mon.Start(context.Background()); err != nil {
				panic(fmt.Sprintf("monitor start error: %s", err))
			}
		}
	}

	server := server.NewServer(*cfg, reader, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if mon != nil {
		mon.Stop()
	}
	if publisher != nil {
		publisher.Disconnect(time.Second)
	}
}

func initConfig() (*config.Config, error) {

	// alias PORT => SUNGOLD_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SUNGOLD_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sungold")
	viper.AutomaticEnv()

	// POWER_ANALYZER_IP is the historical device address variable
	if err := viper.BindEnv("power_analyzer_modbus_tcp.host",
		"SUNGOLD_POWER_ANALYZER_HOST", "POWER_ANALYZER_IP"); err != nil {
		return nil, err
	}

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// normalize topics before validation
	if cfg.MQTT.Host != "" {
		if baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic); err == nil {
			cfg.MQTT.BaseTopic = baseTopic
		}
		if hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic); err == nil {
			cfg.MQTT.HADiscoveryTopic = hadBaseTopic
		}
	}

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func powerAnalyzerReader(cfg *config.Config, logger *zap.Logger) (analyzer_modbus.PowerAnalyzerReader, error) {
	return analyzer_modbus.CreatePowerAnalyzerModbusReader(cfg.PowerAnalyzerModbusTcp.Host,
		cfg.PowerAnalyzerModbusTcp.Port, uint8(cfg.PowerAnalyzerModbusTcp.UnitId),
		time.Duration(cfg.PowerAnalyzerModbusTcp.TimeoutMillis)*time.Millisecond, logger, nil)
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("power_analyzer_modbus_tcp.port", 502)
	viper.SetDefault("power_analyzer_modbus_tcp.unit_id", 1)
	viper.SetDefault("power_analyzer_modbus_tcp.timeout_millis", 1000)
	viper.SetDefault("mqtt.base_topic", "sungoldminer")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.enable", false)
	viper.SetDefault("monitor.poll_interval_millis", 5000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}

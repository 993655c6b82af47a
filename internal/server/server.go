package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/StormFireFox1/SunGoldMiner/internal/config"
	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

type Server struct {
	port    uint
	httpLog bool
	reader  analyzer_modbus.PowerAnalyzerReader
	logger  *zap.Logger
}

func NewServer(cfg config.Config, reader analyzer_modbus.PowerAnalyzerReader, logger *zap.Logger) *http.Server {
	NewServer := &Server{
		port:    cfg.Port,
		reader:  reader,
		logger:  logger,
		httpLog: cfg.HttpLog,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

package server

import (
	"net/http"

	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// failures are reported to external callers with this body only; register
// addresses stay in internal logs.
const unavailableBody = "power analyzer data unavailable"

type phasePowerResponse struct {
	Power         uint32 `json:"power"`
	ApparentPower uint32 `json:"apparentPower"`
	ReactivePower uint32 `json:"reactivePower"`
}

type powerDataResponse struct {
	ImportedPowerTotal         uint32             `json:"importedPowerTotal"`
	ImportedReactivePowerTotal uint32             `json:"importedReactivePowerTotal"`
	ExportedPowerTotal         uint32             `json:"exportedPowerTotal"`
	ExportedReactivePowerTotal uint32             `json:"exportedReactivePowerTotal"`
	Phase1                     phasePowerResponse `json:"phase1"`
	Phase2                     phasePowerResponse `json:"phase2"`
	Phase3                     phasePowerResponse `json:"phase3"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/data", s.PowerDataHandler)
	e.GET("/healthcheck", s.HealthCheckHandler)

	return e
}

func (s *Server) PowerDataHandler(c echo.Context) error {
	snap, err := s.reader.PollSnapshot()
	if err != nil {
		s.logger.Error("power analyzer poll failed", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, unavailableBody)
	}
	return c.JSON(http.StatusOK, snapshotToResponse(snap))
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	if _, err := s.reader.PollSnapshot(); err != nil {
		s.logger.Warn("health check poll failed", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	return c.String(http.StatusOK, "health_check: OK")
}

func snapshotToResponse(snap *analyzer_modbus.PowerSnapshot) powerDataResponse {
	return powerDataResponse{
		ImportedPowerTotal:         snap.ImportedPowerTotal,
		ImportedReactivePowerTotal: snap.ImportedReactivePowerTotal,
		ExportedPowerTotal:         snap.ExportedPowerTotal,
		ExportedReactivePowerTotal: snap.ExportedReactivePowerTotal,
		Phase1:                     phaseToResponse(snap.Phase1),
		Phase2:                     phaseToResponse(snap.Phase2),
		Phase3:                     phaseToResponse(snap.Phase3),
	}
}

func phaseToResponse(p analyzer_modbus.PhasePower) phasePowerResponse {
	return phasePowerResponse{
		Power:         p.Power,
		ApparentPower: p.ApparentPower,
		ReactivePower: p.ReactivePower,
	}
}

package monitor

import (
	"context"
	"time"

	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// SnapshotPublisher is what the monitor needs from the MQTT layer.
type SnapshotPublisher interface {
	PublishSnapshot(snap *analyzer_modbus.PowerSnapshot) error
}

// Monitor periodically polls the analyzer and publishes the snapshot. The
// HTTP data path stays demand-driven; the monitor is an optional extra
// consumer with its own poll (and therefore its own connection) per firing.
type Monitor struct {
	reader    analyzer_modbus.PowerAnalyzerReader
	publisher SnapshotPublisher
	interval  time.Duration
	scheduler quartz.Scheduler
	logger    *zap.Logger
}

func NewMonitor(reader analyzer_modbus.PowerAnalyzerReader, publisher SnapshotPublisher,
	interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		reader:    reader,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With(zap.String("component", "monitor")),
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	m.scheduler = quartz.NewStdScheduler()
	m.scheduler.Start(ctx)

	pollJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		if err := m.pollAndPublish(); err != nil {
			return false, err
		}
		return true, nil
	})
	return m.scheduler.ScheduleJob(
		quartz.NewJobDetail(pollJob, quartz.NewJobKey("power_analyzer_poll")),
		quartz.NewSimpleTrigger(m.interval),
	)
}

func (m *Monitor) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

func (m *Monitor) pollAndPublish() error {
	snap, err := m.reader.PollSnapshot()
	if err != nil {
		m.logger.Error("poll failed", zap.Error(err))
		return err
	}
	if err := m.publisher.PublishSnapshot(snap); err != nil {
		m.logger.Error("snapshot publish failed", zap.Error(err))
		return err
	}
	return nil
}

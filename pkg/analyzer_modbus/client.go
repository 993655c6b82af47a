package analyzer_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// registerBus is the subset of the modbus client the poller needs. It exists
// so the poll sequence can be driven against a scripted device in tests.
type registerBus interface {
	Open() error
	Close() error
	ReadRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error)
}

type ModbusClient struct {
	bus        registerBus
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func (reader ModbusClient) readUint32(addr uint16) (uint32, error) {
	defer RecordTimer("ReadUint32", reader.instrument)()
	regs, err := reader.bus.ReadRegisters(addr, 2, modbus.HOLDING_REGISTER)
	if err != nil {
		return 0, &RegisterReadError{Register: addr, cause: err}
	}
	return DecodeUint32(regs[0], regs[1]), nil
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus read", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

type PowerAnalyzerModbusReader struct {
	ModbusClient
	addr   string
	logger *zap.Logger
}

func CreatePowerAnalyzerModbusReader(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (PowerAnalyzerReader, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s", addr),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "powerAnalyzer")).With(zap.String("addr", addr)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	// set analyzer address
	if unitId > 0 {
		err = client.SetUnitId(unitId)
		if err != nil {
			return nil, err
		}
	}
	// create reader instance
	reader := PowerAnalyzerModbusReader{
		ModbusClient: ModbusClient{
			bus:        client,
			instrument: inst,
		},
		addr:   addr,
		logger: logger,
	}
	return &reader, nil
}

// PollSnapshot opens a fresh connection, reads the full register battery on
// it and returns one consistent snapshot. The first failed read aborts the
// poll and reports the failing register. The connection is never reused
// across polls.
func (reader *PowerAnalyzerModbusReader) PollSnapshot() (*PowerSnapshot, error) {
	if err := reader.bus.Open(); err != nil {
		return nil, &TransportError{Addr: reader.addr, cause: err}
	}
	defer reader.close()

	return readSnapshot(reader.ModbusClient)
}

// close errors cannot change the poll's outcome, so they are only logged.
func (reader *PowerAnalyzerModbusReader) close() {
	if err := reader.bus.Close(); err != nil {
		reader.logger.Warn("power analyzer close failed", zap.String("addr", reader.addr), zap.Error(err))
	}
}

func readSnapshot(client ModbusClient) (*PowerSnapshot, error) {
	var snap PowerSnapshot
	for _, reg := range aggregateRegisters {
		value, err := client.readUint32(reg.addr)
		if err != nil {
			return nil, err
		}
		reg.set(&snap, value)
	}
	for _, m := range phaseMeasurements {
		for i := 0; i < phaseCount; i++ {
			value, err := client.readUint32(PhaseRegister(m, i))
			if err != nil {
				return nil, err
			}
			snap.phase(i).set(m, value)
		}
	}
	return &snap, nil
}

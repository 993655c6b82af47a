package analyzer_modbus

import (
	"errors"
	"testing"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRegisterBus is a scripted device: per-address register contents plus a
// programmable failure point.
type fakeRegisterBus struct {
	regs         map[uint16]uint16
	openErr      error
	closeErr     error
	failRegister uint16
	failErr      error
	opened       int
	closed       int
	reads        []uint16
}

func (f *fakeRegisterBus) Open() error {
	f.opened++
	return f.openErr
}

func (f *fakeRegisterBus) Close() error {
	f.closed++
	return f.closeErr
}

func (f *fakeRegisterBus) ReadRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error) {
	f.reads = append(f.reads, addr)
	if f.failErr != nil && addr == f.failRegister {
		return nil, f.failErr
	}
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = f.regs[addr+uint16(i)]
	}
	return out, nil
}

func fakeReader(bus *fakeRegisterBus) *PowerAnalyzerModbusReader {
	return &PowerAnalyzerModbusReader{
		ModbusClient: ModbusClient{bus: bus},
		addr:         "device.test:502",
		logger:       zap.NewNop(),
	}
}

// seeds every mapped register pair with a value derived from its own address
// so cross-assigned fields cannot go unnoticed.
func seededBus() *fakeRegisterBus {
	regs := make(map[uint16]uint16)
	addrs := []uint16{
		RegImportedPowerTotal, RegImportedReactivePowerTotal,
		RegExportedPowerTotal, RegExportedReactivePowerTotal,
	}
	for _, m := range []PhaseMeasurement{PhasePowerMeasurement, PhaseApparentPowerMeasurement, PhaseReactivePowerMeasurement} {
		for i := 0; i < 3; i++ {
			addrs = append(addrs, PhaseRegister(m, i))
		}
	}
	for _, addr := range addrs {
		regs[addr] = addr
		regs[addr+1] = addr + 1
	}
	return &fakeRegisterBus{regs: regs}
}

func seededValue(addr uint16) uint32 {
	return DecodeUint32(addr, addr+1)
}

func TestDecodeUint32(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(0), DecodeUint32(0x0000, 0x0000))
	assert.Equal(uint32(1), DecodeUint32(0x0000, 0x0001))
	assert.Equal(uint32(65536), DecodeUint32(0x0001, 0x0000))
	assert.Equal(uint32(0xFFFF), DecodeUint32(0x0000, 0xFFFF))
	assert.Equal(uint32(0xFFFF0000), DecodeUint32(0xFFFF, 0x0000))
	assert.Equal(uint32(0xFFFFFFFF), DecodeUint32(0xFFFF, 0xFFFF))
	assert.Equal(uint32(0x12345678), DecodeUint32(0x1234, 0x5678))
}

func TestAggregateRegisterTable(t *testing.T) {

	assert := assert.New(t)

	expected := []struct {
		id   string
		addr uint16
	}{
		{"imported_power_total", 0x34},
		{"imported_reactive_power_total", 0x36},
		{"exported_power_total", 0x4e},
		{"exported_reactive_power_total", 0x50},
	}
	require.Len(t, aggregateRegisters, len(expected))
	for i, e := range expected {
		assert.Equal(e.id, aggregateRegisters[i].id)
		assert.Equal(e.addr, aggregateRegisters[i].addr)
	}
}

func TestPhaseRegisterArithmetic(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0x12), PhaseRegister(PhasePowerMeasurement, 0))
	assert.Equal(uint16(0x14), PhaseRegister(PhasePowerMeasurement, 1))
	assert.Equal(uint16(0x16), PhaseRegister(PhasePowerMeasurement, 2))
	assert.Equal(uint16(0x18), PhaseRegister(PhaseApparentPowerMeasurement, 0))
	assert.Equal(uint16(0x1a), PhaseRegister(PhaseApparentPowerMeasurement, 1))
	assert.Equal(uint16(0x1c), PhaseRegister(PhaseApparentPowerMeasurement, 2))
	assert.Equal(uint16(0x1e), PhaseRegister(PhaseReactivePowerMeasurement, 0))
	assert.Equal(uint16(0x20), PhaseRegister(PhaseReactivePowerMeasurement, 1))
	assert.Equal(uint16(0x22), PhaseRegister(PhaseReactivePowerMeasurement, 2))
}

func TestPollSnapshotMapsEveryRegister(t *testing.T) {
	assert := assert.New(t)

	bus := seededBus()
	snap, err := fakeReader(bus).PollSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(seededValue(0x34), snap.ImportedPowerTotal)
	assert.Equal(seededValue(0x36), snap.ImportedReactivePowerTotal)
	assert.Equal(seededValue(0x4e), snap.ExportedPowerTotal)
	assert.Equal(seededValue(0x50), snap.ExportedReactivePowerTotal)

	assert.Equal(seededValue(0x12), snap.Phase1.Power)
	assert.Equal(seededValue(0x14), snap.Phase2.Power)
	assert.Equal(seededValue(0x16), snap.Phase3.Power)
	assert.Equal(seededValue(0x18), snap.Phase1.ApparentPower)
	assert.Equal(seededValue(0x1a), snap.Phase2.ApparentPower)
	assert.Equal(seededValue(0x1c), snap.Phase3.ApparentPower)
	assert.Equal(seededValue(0x1e), snap.Phase1.ReactivePower)
	assert.Equal(seededValue(0x20), snap.Phase2.ReactivePower)
	assert.Equal(seededValue(0x22), snap.Phase3.ReactivePower)

	assert.Equal(13, len(bus.reads))
	assert.Equal(1, bus.opened)
	assert.Equal(1, bus.closed)
}

func TestPollSnapshotImportedPowerConcrete(t *testing.T) {
	bus := seededBus()
	bus.regs[0x34] = 0x0001
	bus.regs[0x35] = 0x0000

	snap, err := fakeReader(bus).PollSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), snap.ImportedPowerTotal)
}

func TestPollSnapshotFailFastOnAggregate(t *testing.T) {
	assert := assert.New(t)

	bus := seededBus()
	bus.failRegister = RegExportedPowerTotal
	bus.failErr = errors.New("timeout")

	snap, err := fakeReader(bus).PollSnapshot()
	require.Error(t, err)
	assert.Nil(snap)

	var readErr *RegisterReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(uint16(0x4e), readErr.Register)
	assert.ErrorIs(err, bus.failErr)

	// no read after the failing one, connection still released
	assert.Equal(uint16(0x4e), bus.reads[len(bus.reads)-1])
	assert.Equal(3, len(bus.reads))
	assert.Equal(1, bus.closed)
}

func TestPollSnapshotFailFastOnPhase(t *testing.T) {
	assert := assert.New(t)

	bus := seededBus()
	bus.failRegister = PhaseRegister(PhaseApparentPowerMeasurement, 2)
	bus.failErr = errors.New("connection reset")

	snap, err := fakeReader(bus).PollSnapshot()
	require.Error(t, err)
	assert.Nil(snap)

	var readErr *RegisterReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(uint16(0x1c), readErr.Register)
	assert.Equal(1, bus.closed)
}

func TestPollSnapshotTransportUnavailable(t *testing.T) {
	assert := assert.New(t)

	bus := seededBus()
	bus.openErr = errors.New("connection refused")

	snap, err := fakeReader(bus).PollSnapshot()
	require.Error(t, err)
	assert.Nil(snap)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal("device.test:502", transportErr.Addr)
	assert.Equal(0, len(bus.reads))
	assert.Equal(0, bus.closed)
}

func TestPollSnapshotCloseErrorIsNonFatal(t *testing.T) {
	bus := seededBus()
	bus.closeErr = errors.New("already closed")

	snap, err := fakeReader(bus).PollSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestPollSnapshotIsIdempotent(t *testing.T) {
	assert := assert.New(t)

	bus := seededBus()
	reader := fakeReader(bus)

	first, err := reader.PollSnapshot()
	require.NoError(t, err)
	second, err := reader.PollSnapshot()
	require.NoError(t, err)

	assert.Equal(first, second)
	// one fresh connection per poll
	assert.Equal(2, bus.opened)
	assert.Equal(2, bus.closed)
}

func TestTestPowerAnalyzerReader(t *testing.T) {
	reader, err := CreateTestPowerAnalyzerReader()
	require.NoError(t, err)

	snap, err := reader.PollSnapshot()
	require.NoError(t, err)
	assert.NotZero(t, snap.ImportedPowerTotal)
	assert.NotZero(t, snap.Phase3.ReactivePower)
}

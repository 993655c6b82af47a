package analyzer_modbus

// Holding-register map of the power analyzer. Every logical value spans two
// consecutive 16-bit registers, high word first.
const (
	RegImportedPowerTotal         uint16 = 0x34
	RegImportedReactivePowerTotal uint16 = 0x36
	RegExportedPowerTotal         uint16 = 0x4e
	RegExportedReactivePowerTotal uint16 = 0x50
)

// Per-phase measurements share a base register per kind. Phase i reads at
// base + 2*i.
const (
	RegBasePhasePower         uint16 = 0x12
	RegBasePhaseApparentPower uint16 = 0x18
	RegBasePhaseReactivePower uint16 = 0x1e

	phaseRegisterStride uint16 = 2
	phaseCount                 = 3
)

type PhaseMeasurement int

const (
	PhasePowerMeasurement PhaseMeasurement = iota
	PhaseApparentPowerMeasurement
	PhaseReactivePowerMeasurement
)

func (m PhaseMeasurement) BaseRegister() uint16 {
	switch m {
	case PhasePowerMeasurement:
		return RegBasePhasePower
	case PhaseApparentPowerMeasurement:
		return RegBasePhaseApparentPower
	default:
		return RegBasePhaseReactivePower
	}
}

// PhaseRegister returns the holding register of measurement m for phase
// index 0..2.
func PhaseRegister(m PhaseMeasurement, phase int) uint16 {
	return m.BaseRegister() + uint16(phase)*phaseRegisterStride
}

// DecodeUint32 combines two consecutive holding registers into one unsigned
// 32-bit value, high word first. No scaling, no sign.
func DecodeUint32(hi uint16, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

type PhasePower struct {
	// Real power
	Power uint32
	// Apparent power
	ApparentPower uint32
	// Reactive power
	ReactivePower uint32
}

func (p *PhasePower) set(m PhaseMeasurement, value uint32) {
	switch m {
	case PhasePowerMeasurement:
		p.Power = value
	case PhaseApparentPowerMeasurement:
		p.ApparentPower = value
	default:
		p.ReactivePower = value
	}
}

// PowerSnapshot is the complete result of one poll. It is only ever built
// fully populated; a failed poll yields an error, never a partial snapshot.
type PowerSnapshot struct {
	ImportedPowerTotal         uint32
	ImportedReactivePowerTotal uint32
	ExportedPowerTotal         uint32
	ExportedReactivePowerTotal uint32
	Phase1                     PhasePower
	Phase2                     PhasePower
	Phase3                     PhasePower
}

func (s *PowerSnapshot) phase(i int) *PhasePower {
	switch i {
	case 0:
		return &s.Phase1
	case 1:
		return &s.Phase2
	default:
		return &s.Phase3
	}
}

// aggregateRegisters is a plain slice so read order is deterministic.
type aggregateRegister struct {
	id   string
	addr uint16
	set  func(*PowerSnapshot, uint32)
}

var aggregateRegisters = []aggregateRegister{
	{"imported_power_total", RegImportedPowerTotal, func(s *PowerSnapshot, v uint32) { s.ImportedPowerTotal = v }},
	{"imported_reactive_power_total", RegImportedReactivePowerTotal, func(s *PowerSnapshot, v uint32) { s.ImportedReactivePowerTotal = v }},
	{"exported_power_total", RegExportedPowerTotal, func(s *PowerSnapshot, v uint32) { s.ExportedPowerTotal = v }},
	{"exported_reactive_power_total", RegExportedReactivePowerTotal, func(s *PowerSnapshot, v uint32) { s.ExportedReactivePowerTotal = v }},
}

var phaseMeasurements = []PhaseMeasurement{
	PhasePowerMeasurement,
	PhaseApparentPowerMeasurement,
	PhaseReactivePowerMeasurement,
}

type PowerAnalyzerReader interface {
	PollSnapshot() (*PowerSnapshot, error)
}

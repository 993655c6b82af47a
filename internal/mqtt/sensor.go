package mqtt

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/StormFireFox1/SunGoldMiner/pkg/analyzer_modbus"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE                  = "bridge"
	SENSOR_ID_IMPORTED_POWER_TOTAL          = "imported_power_total"
	SENSOR_ID_IMPORTED_REACTIVE_POWER_TOTAL = "imported_reactive_power_total"
	SENSOR_ID_EXPORTED_POWER_TOTAL          = "exported_power_total"
	SENSOR_ID_EXPORTED_REACTIVE_POWER_TOTAL = "exported_reactive_power_total"
	STATE_CLASS_MEASUREMENT                 = "measurement"
	STATE_CLASS_TOTAL_INCREASING            = "total_increasing"
	DEVICE_CLASS_CONNECTIVITY               = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC                 = "diagnostic"
	SENSOR_TYPE_SENSOR                      = "sensor"
	SENSOR_TYPE_BINARY                      = "binary_sensor"
)

type Device struct {
	Id           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Name         string `json:"name"`
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing (for acc energy)
	DeviceClass       string
	EntityCategory    string // diagnostic, config, nil
	Icon              string
}

func (d Device) JSON() (string, error) {
	bytes, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("sungoldminer_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "StormFireFox1",
		Model:        "SunGoldMiner",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("SunGoldMiner %s", md5HashShort(baseTopic)),
	}
}

type SensorValue struct {
	Id    string
	Value string
}

// SnapshotSensorValues flattens a snapshot into one sensor state per
// measurement. Phase sensor ids follow `phase{n}_{measurement}`.
func SnapshotSensorValues(snap *analyzer_modbus.PowerSnapshot) []SensorValue {
	values := []SensorValue{
		{SENSOR_ID_IMPORTED_POWER_TOTAL, formatMeasurement(snap.ImportedPowerTotal)},
		{SENSOR_ID_IMPORTED_REACTIVE_POWER_TOTAL, formatMeasurement(snap.ImportedReactivePowerTotal)},
		{SENSOR_ID_EXPORTED_POWER_TOTAL, formatMeasurement(snap.ExportedPowerTotal)},
		{SENSOR_ID_EXPORTED_REACTIVE_POWER_TOTAL, formatMeasurement(snap.ExportedReactivePowerTotal)},
	}
	phases := []analyzer_modbus.PhasePower{snap.Phase1, snap.Phase2, snap.Phase3}
	for i, phase := range phases {
		values = append(values,
			SensorValue{fmt.Sprintf("phase%d_power", i+1), formatMeasurement(phase.Power)},
			SensorValue{fmt.Sprintf("phase%d_apparent_power", i+1), formatMeasurement(phase.ApparentPower)},
			SensorValue{fmt.Sprintf("phase%d_reactive_power", i+1), formatMeasurement(phase.ReactivePower)},
		)
	}
	return values
}

func formatMeasurement(value uint32) string {
	return strconv.FormatUint(uint64(value), 10)
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Connection State
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// AnalyzerSensors declares one read-only sensor per published measurement,
// ids matching SnapshotSensorValues. Values are raw register contents, so no
// unit is advertised.
func AnalyzerSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	aggregates := []struct {
		id   string
		name string
	}{
		{SENSOR_ID_IMPORTED_POWER_TOTAL, "Imported power total"},
		{SENSOR_ID_IMPORTED_REACTIVE_POWER_TOTAL, "Imported reactive power total"},
		{SENSOR_ID_EXPORTED_POWER_TOTAL, "Exported power total"},
		{SENSOR_ID_EXPORTED_REACTIVE_POWER_TOTAL, "Exported reactive power total"},
	}
	for _, agg := range aggregates {
		sensors = append(sensors, GenericSensor{
			Device:     bridgeDevice,
			Id:         agg.id,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       agg.name,
			StateClass: STATE_CLASS_TOTAL_INCREASING,
			UniqueId:   uniqueId(bridgeDevice.Id, agg.id),
		})
	}

	measurements := []struct {
		id   string
		name string
	}{
		{"power", "power"},
		{"apparent_power", "apparent power"},
		{"reactive_power", "reactive power"},
	}
	for phase := 1; phase <= 3; phase++ {
		for _, m := range measurements {
			id := fmt.Sprintf("phase%d_%s", phase, m.id)
			sensors = append(sensors, GenericSensor{
				Device:     bridgeDevice,
				Id:         id,
				SensorType: SENSOR_TYPE_SENSOR,
				Name:       fmt.Sprintf("Phase %d %s", phase, m.name),
				StateClass: STATE_CLASS_MEASUREMENT,
				UniqueId:   uniqueId(bridgeDevice.Id, id),
			})
		}
	}

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5HashShort(str string) string {
	hash := md5.Sum([]byte(str))
	return hex.EncodeToString(hash[:])[:8]
}

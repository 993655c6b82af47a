package analyzer_modbus

func CreateTestPowerAnalyzerReader() (PowerAnalyzerReader, error) {
	return TestPowerAnalyzerReader{}, nil
}

type TestPowerAnalyzerReader struct {
}

func (reader TestPowerAnalyzerReader) PollSnapshot() (*PowerSnapshot, error) {
	return &PowerSnapshot{
		ImportedPowerTotal:         1250340,
		ImportedReactivePowerTotal: 88210,
		ExportedPowerTotal:         277034,
		ExportedReactivePowerTotal: 55022,
		Phase1: PhasePower{
			Power:         1430,
			ApparentPower: 1502,
			ReactivePower: 460,
		},
		Phase2: PhasePower{
			Power:         1385,
			ApparentPower: 1460,
			ReactivePower: 432,
		},
		Phase3: PhasePower{
			Power:         1405,
			ApparentPower: 1478,
			ReactivePower: 448,
		},
	}, nil
}

package config

import "sort"

func smaLysozyme(kinetic bool) *Config {
	return &Config{
		Model: "STERIC_MASS_ACTION", NComp: 4, NBound: []int{1, 1, 1, 1}, Kinetic: kinetic,
		Liquid: []float64{50, 1.0, 1.0, 1.0}, Bound: []float64{1200, 0, 0, 0},
		Dt: 0.05, Duration: 20, Tolerance: DefaultTolerance,
		Parameters: map[string]any{
			"SMA_LAMBDA": 1200.0,
			"SMA_KA":     []any{0.0, 35.5, 1.59, 7.7},
			"SMA_KD":     []any{0.0, 1000.0, 1000.0, 1000.0},
			"SMA_NU":     []any{0.0, 4.7, 5.29, 3.7},
			"SMA_SIGMA":  []any{0.0, 11.83, 10.6, 10.0},
			"SMA_REFC0":  50.0,
			"SMA_REFQ":   1200.0,
		},
	}
}

var Presets = map[string]map[string]*Config{
	"STERIC_MASS_ACTION": {
		"lysozyme":    smaLysozyme(true),
		"equilibrium": smaLysozyme(false),
		"non_binding": {
			Model: "STERIC_MASS_ACTION", NComp: 3, NBound: []int{1, 0, 1}, Kinetic: true,
			Liquid: []float64{100, 0.5, 1.0}, Bound: []float64{800, 0},
			Dt: 0.1, Duration: 10, Tolerance: DefaultTolerance,
			Parameters: map[string]any{
				"SMA_LAMBDA": 800.0,
				"SMA_KA":     []any{0.0, 0.0, 3.0},
				"SMA_KD":     []any{0.0, 0.0, 2.0},
				"SMA_NU":     []any{0.0, 0.0, 4.2},
				"SMA_SIGMA":  []any{0.0, 0.0, 6.0},
				"SMA_REFC0":  100.0,
				"SMA_REFQ":   800.0,
			},
		},
	},
	"EXT_STERIC_MASS_ACTION": {
		"salt_ramp": {
			Model: "EXT_STERIC_MASS_ACTION", NComp: 2, NBound: []int{1, 1}, Kinetic: true,
			Liquid: []float64{50, 1.0}, Bound: []float64{1200, 0},
			Dt: 0.1, Duration: 20, Tolerance: DefaultTolerance,
			External: []string{"1 + 0.05*t"},
			Parameters: map[string]any{
				"EXT_SMA_LAMBDA":     1200.0,
				"EXT_SMA_LAMBDA_T":   0.0,
				"EXT_SMA_LAMBDA_TT":  0.0,
				"EXT_SMA_LAMBDA_TTT": 0.0,
				"EXT_SMA_KA":         []any{0.0, 10.0},
				"EXT_SMA_KA_T":       []any{0.0, -2.0},
				"EXT_SMA_KA_TT":      []any{0.0, 0.0},
				"EXT_SMA_KA_TTT":     []any{0.0, 0.0},
				"EXT_SMA_KD":         []any{0.0, 1.0},
				"EXT_SMA_KD_T":       []any{0.0, 0.0},
				"EXT_SMA_KD_TT":      []any{0.0, 0.0},
				"EXT_SMA_KD_TTT":     []any{0.0, 0.0},
				"EXT_SMA_NU":         []any{0.0, 4.7},
				"EXT_SMA_NU_T":       []any{0.0, 0.0},
				"EXT_SMA_NU_TT":      []any{0.0, 0.0},
				"EXT_SMA_NU_TTT":     []any{0.0, 0.0},
				"EXT_SMA_SIGMA":      []any{0.0, 11.83},
				"EXT_SMA_SIGMA_T":    []any{0.0, 0.0},
				"EXT_SMA_SIGMA_TT":   []any{0.0, 0.0},
				"EXT_SMA_SIGMA_TTT":  []any{0.0, 0.0},
				"EXT_SMA_REFC0":      50.0,
				"EXT_SMA_REFQ":       1200.0,
				"EXTFUN":             []any{0},
			},
		},
	},
	"GENERALIZED_ION_EXCHANGE": {
		"ph_modulated": {
			Model: "GENERALIZED_ION_EXCHANGE", NComp: 4, NBound: []int{1, 0, 1, 1}, Kinetic: true,
			Liquid: []float64{60, 5.5, 1.0, 0.5}, Bound: []float64{1200, 0, 0},
			Dt: 0.1, Duration: 20, Tolerance: DefaultTolerance,
			Parameters: map[string]any{
				"GIEX_LAMBDA":  1200.0,
				"GIEX_KA":      []any{0, 0, 10.0, 5.0},
				"GIEX_KA_LIN":  []any{0, 0, 0.2, 0.1},
				"GIEX_KA_QUAD": []any{0, 0, -0.02, -0.01},
				"GIEX_KA_SALT": []any{0, 0, 0.1, 0.05},
				"GIEX_KA_PROT": []any{0, 0, 0.3, 0.2},
				"GIEX_KD":      []any{0, 0, 1.0, 1.0},
				"GIEX_KD_LIN":  []any{0, 0, 0.05, 0.08},
				"GIEX_KD_QUAD": []any{0, 0, 0.01, -0.01},
				"GIEX_KD_SALT": []any{0, 0, 0.2, 0.1},
				"GIEX_KD_PROT": []any{0, 0, 0.1, 0.1},
				"GIEX_NU":      []any{0, 0, 4.7, 5.29},
				"GIEX_NU_LIN":  []any{0, 0, 0.1, -0.05},
				"GIEX_NU_QUAD": []any{0, 0, 0.01, 0.02},
				"GIEX_SIGMA":   []any{0, 0, 11.83, 10.6},
				"GIEX_REFC0":   50.0,
				"GIEX_REFQ":    1200.0,
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

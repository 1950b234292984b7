package selection

import (
	stderrors "errors"
	"fmt"
	"math"

	"ufwcfg/pkg/config"
	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/inputshaper"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/skew"
	"ufwcfg/pkg/thermistor"
)

// Validate checks the selection and returns every violation joined together,
// or nil when the selection can be resolved.
func (s Selection) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(s.validatePrinter())
	add(s.validateEnums())

	if p := s.Printer(); len(s.Printers) == 1 && s.XtenderKit != "" && !s.XtenderKit.Fits(p) {
		add(errors.ConflictError(string(s.XtenderKit), string(p),
			fmt.Sprintf("kit is built for the %s family", s.XtenderKit.Family())))
	}

	add(s.validateProbe())
	add(s.validateThermistors())

	if s.FilamentSensor == machine.SensorBTTSFS && !(s.BttSfsDistanceMM > 0) {
		add(errors.RangeError("BTT_SFS_DISTANCE_MM", s.BttSfsDistanceMM, "must be positive"))
	}
	if s.Extruder.CustomESteps && !(s.Extruder.ESteps > 0) {
		add(errors.RangeError("CUSTOM_ESTEPS_VALUE", s.Extruder.ESteps, "must be positive"))
	}
	if s.InputShaping.Enabled {
		if err := inputshaper.Validate(s.InputShaping.FreqX, s.InputShaping.DampingX); err != nil {
			add(errors.Wrap(err, errors.ErrSelectionRange, err.Error()).SetMacro("INPUT_SHAPING_X"))
		}
		if err := inputshaper.Validate(s.InputShaping.FreqY, s.InputShaping.DampingY); err != nil {
			add(errors.Wrap(err, errors.ErrSelectionRange, err.Error()).SetMacro("INPUT_SHAPING_Y"))
		}
	}
	for _, b := range []struct {
		macro string
		v     int
	}{{"CUSTOM_X_BED_SIZE", s.CustomBed.X}, {"CUSTOM_Y_BED_SIZE", s.CustomBed.Y}, {"CUSTOM_Z_HEIGHT", s.CustomBed.Z}} {
		if b.v < 0 {
			add(errors.RangeError(b.macro, float64(b.v), "must be positive"))
		}
	}
	if s.LinearAdvance.Enabled && (s.LinearAdvance.K < 0 || s.LinearAdvance.K > 10 || math.IsNaN(s.LinearAdvance.K)) {
		add(errors.RangeError("LINEAR_ADVANCE_K", s.LinearAdvance.K, "must be within [0, 10]"))
	}
	add(s.validateSkew())

	if s.NoSDCard && s.SDCardEEPROM {
		add(errors.ConflictError("SDCARD_EEPROM_EMULATION", "NO_SDCARD", "EEPROM emulation stores settings on the SD card"))
	}
	if s.Probe.FastProbe && s.Probe.SuperFastProbe {
		add(errors.ConflictError("EZABL_SUPERFASTPROBE", "EZABL_FASTPROBE", "choose one probing speed"))
	}

	return stderrors.Join(errs...)
}

func (s Selection) validatePrinter() error {
	names := make([]string, len(s.Printers))
	for i, p := range s.Printers {
		names[i] = string(p)
	}
	if len(s.Printers) != 1 {
		return errors.PrinterSelectionError(names)
	}
	if _, err := machine.ParsePrinter(names[0]); err != nil {
		return err
	}
	return nil
}

func (s Selection) validateEnums() error {
	var errs []error
	check := func(_ any, err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	check(machine.ParseXtenderKit(string(s.XtenderKit)))
	check(machine.ParseFilamentSensor(string(s.FilamentSensor)))
	check(machine.ParseProbeMount(string(s.ProbeMount)))
	check(machine.ParseE5PlusABL(string(s.Ender5PlusABL)))
	check(machine.ParseBedLeveling(string(s.Probe.Leveling)))
	check(machine.ParseHotendThermistor(string(s.Thermistors.Hotend)))
	check(machine.ParseBedThermistor(string(s.Thermistors.Bed)))
	return stderrors.Join(errs...)
}

func (s Selection) validateProbe() error {
	var errs []error
	p := s.Probe

	if p.Points < 3 || p.Points > 15 || p.Points%2 == 0 {
		errs = append(errs, errors.RangeError("EZABL_POINTS", float64(p.Points), "must be an odd number from 3 to 15"))
	}
	if p.Edge < 0 {
		errs = append(errs, errors.RangeError("EZABL_PROBE_EDGE", float64(p.Edge), "must not be negative"))
	}
	if p.ServoPin != "" {
		if _, err := config.ParsePin(p.ServoPin, config.PinOptions{}); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrSelectionUnknown, err.Error()).SetMacro("SERVO0_PIN"))
		}
	}
	if p.BLTouchOn5Pin && !p.BLTouch {
		errs = append(errs, errors.RequiredError("BLTOUCH", "BLTOUCH_ON_5PIN"))
	}

	// Preset mounts carry their own offsets; a custom probe must supply one.
	preset := s.ProbeMount != "" && s.ProbeMount != machine.MountCustom
	if s.CustomProbe() && p.Offset == nil && !preset {
		by := "CUSTOM_PROBE"
		if p.BLTouch {
			by = "BLTOUCH"
		}
		errs = append(errs, errors.RequiredError("NOZZLE_TO_PROBE_OFFSET", by))
	}
	if p.Offset != nil {
		for i, v := range p.Offset {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = append(errs, errors.RangeError("NOZZLE_TO_PROBE_OFFSET", v,
					fmt.Sprintf("component %d must be a finite number", i)))
			}
		}
	}
	return stderrors.Join(errs...)
}

func (s Selection) validateThermistors() error {
	var errs []error
	t := s.Thermistors

	if t.Hotend == machine.HotendKnown {
		if t.HotendCode == nil {
			errs = append(errs, errors.RequiredError("KNOWN_HOTEND_THERMISTOR_VALUE", "KNOWN_HOTEND_THERMISTOR"))
		} else if err := thermistor.Validate(*t.HotendCode, false); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrSelectionUnknown, err.Error()).SetMacro("KNOWN_HOTEND_THERMISTOR_VALUE"))
		}
	}
	if t.Bed == machine.BedKnown {
		if t.BedCode == nil {
			errs = append(errs, errors.RequiredError("KNOWN_BED_THERMISTOR_VALUE", "KNOWN_BED_THERMISTOR"))
		} else if err := thermistor.Validate(*t.BedCode, true); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrSelectionUnknown, err.Error()).SetMacro("KNOWN_BED_THERMISTOR_VALUE"))
		}
	}
	if t.HighTemp && t.HighTempLimit <= 0 {
		errs = append(errs, errors.RequiredError("HIGH_TEMP_THERMISTOR_TEMP", "HIGH_TEMP_THERMISTOR"))
	}
	return stderrors.Join(errs...)
}

func (s Selection) validateSkew() error {
	sk := s.Skew
	if !sk.Enabled {
		return nil
	}
	var errs []error
	plane := func(name string, factor *float64, m skew.Measurement) {
		macro := name + "_SKEW_FACTOR"
		if factor != nil {
			if err := (skew.Factors{XY: *factor}).Validate(); err != nil {
				errs = append(errs, errors.RangeError(macro, *factor, "must be within [-1, 1]"))
			}
			return
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrSelectionRange, err.Error()).SetMacro(name+"_DIAG_AC"))
			return
		}
		if f := m.Factor(); f < skew.FactorMin || f > skew.FactorMax {
			errs = append(errs, errors.RangeError(macro, f, "computed from measurements is outside [-1, 1]"))
		}
	}
	plane("XY", sk.XYFactor, skew.Measurement{AC: sk.XYDiagAC, BD: sk.XYDiagBD, AD: sk.XYSideAD})
	if sk.ForZ {
		// The XZ square shares its side length with the XY square.
		plane("XZ", sk.XZFactor, skew.Measurement{AC: sk.XZDiagAC, BD: sk.XZDiagBD, AD: sk.XYSideAD})
		plane("YZ", sk.YZFactor, skew.Measurement{AC: sk.YZDiagAC, BD: sk.YZDiagBD, AD: sk.YZSideAD})
	}
	return stderrors.Join(errs...)
}

// Warnings returns advisory messages for choices that resolve but are
// probably not what the user meant.
func (s Selection) Warnings() []string {
	var out []string
	p := s.Printer()
	if s.Ender5NewLeadscrew && !p.Ender5Layout() {
		out = append(out, fmt.Sprintf("ENDER5_NEW_LEADSCREW sets Z steps to 800 on %s", p))
	}
	if s.Ender5PlusABL != machine.E5PlusStockBLTouch && p != machine.Ender5Plus {
		out = append(out, fmt.Sprintf("%s has no effect on %s", s.Ender5PlusABL, p))
	}
	if s.Thermistors.HighTemp {
		code := 1
		switch s.Thermistors.Hotend {
		case machine.HotendV6:
			code = 5
		case machine.HotendKnown:
			if s.Thermistors.HotendCode != nil {
				code = *s.Thermistors.HotendCode
			}
		}
		if w := thermistor.HighTempWarning(code, s.Thermistors.HighTempLimit); w != "" {
			out = append(out, w)
		}
	}
	if s.Probe.ServoPin != "" && !s.Probe.BLTouch {
		out = append(out, "SERVO0_PIN is only used with BLTOUCH")
	}
	return out
}

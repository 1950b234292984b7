package selection

import (
	stderrors "errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"ufwcfg/pkg/config"
	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/machine"
)

// Define is one preprocessor macro. An empty Value defines a flag.
type Define struct {
	Name  string
	Value string
}

func (d Define) String() string {
	if d.Value == "" {
		return "#define " + d.Name
	}
	return "#define " + d.Name + " " + d.Value
}

// Warning is a non-fatal note produced while interpreting macros.
type Warning struct {
	Macro   string
	Message string
}

func (w Warning) String() string {
	if w.Macro == "" {
		return w.Message
	}
	return w.Macro + ": " + w.Message
}

// FormatFloat writes a number the shortest way that reads back exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTriple writes a brace-enclosed array as the firmware headers do.
func FormatTriple(v [3]float64) string {
	return fmt.Sprintf("{ %s, %s, %s }", FormatFloat(v[0]), FormatFloat(v[1]), FormatFloat(v[2]))
}

type defineList []Define

func (l *defineList) flag(on bool, name string) {
	if on {
		*l = append(*l, Define{Name: name})
	}
}

func (l *defineList) value(name, v string) {
	*l = append(*l, Define{Name: name, Value: v})
}

// Defines returns the selection as the ordered macro list of the header's
// user section.
func (s Selection) Defines() []Define {
	var l defineList

	l.flag(s.E3MiniV3F4CPU, "E3MINIV3_F4CPU")
	for _, p := range s.Printers {
		l.flag(true, string(p))
	}

	l.flag(s.FilamentSensor != "", string(s.FilamentSensor))
	l.value("BTT_SFS_DISTANCE_MM", FormatFloat(s.BttSfsDistanceMM))

	l.flag(s.ProbeMount != "", string(s.ProbeMount))
	l.flag(s.EZABLOnServoHeader, "EZABL_ON_SERVO_HEADER")
	l.flag(s.Ender5NewLeadscrew, "ENDER5_NEW_LEADSCREW")
	l.flag(s.Ender5PlusABL != "", string(s.Ender5PlusABL))
	l.flag(s.EZNeo220, "EZNEO_220")

	p := s.Probe
	l.value("EZABL_POINTS", strconv.Itoa(p.Points))
	l.value("EZABL_PROBE_EDGE", strconv.Itoa(p.Edge))
	l.flag(p.Leveling == machine.LevelingUBL, "ABL_UBL")
	l.flag(p.FastProbe, "EZABL_FASTPROBE")
	l.flag(p.SuperFastProbe, "EZABL_SUPERFASTPROBE")
	l.flag(p.HeatersOnDuringProbing, "HEATERS_ON_DURING_PROBING")
	l.flag(p.ProbingSteppersOff, "PROBING_STEPPERS_OFF")
	l.flag(p.SlowerProbeMoves, "SLOWER_PROBE_MOVES")
	l.flag(p.ExtrapolateBeyondGrid, "EXTRAPOLATE_BEYOND_GRID")
	l.flag(p.BLTouch, "BLTOUCH")
	l.flag(p.BLTouchOn5Pin, "BLTOUCH_ON_5PIN")
	if p.ServoPin != "" {
		l.value("SERVO0_PIN", p.ServoPin)
	}
	if p.Offset != nil {
		l.value("NOZZLE_TO_PROBE_OFFSET", FormatTriple(*p.Offset))
	}

	l.flag(s.Extruder.CustomESteps, "CUSTOM_ESTEPS")
	l.value("CUSTOM_ESTEPS_VALUE", FormatFloat(s.Extruder.ESteps))
	l.flag(s.Extruder.ReverseE, "REVERSE_E_MOTOR_DIRECTION")
	l.flag(s.Unload.MountedFilamentSensor, "MOUNTED_FILAMENT_SENSOR")
	l.flag(s.Unload.DirectDrive, "DIRECT_DRIVE_PRINTER")

	t := s.Thermistors
	l.flag(t.Hotend != "", string(t.Hotend))
	if t.HotendCode != nil {
		l.value("KNOWN_HOTEND_THERMISTOR_VALUE", strconv.Itoa(*t.HotendCode))
	}
	l.flag(t.HighTemp, "HIGH_TEMP_THERMISTOR")
	if t.HighTempLimit != 0 {
		l.value("HIGH_TEMP_THERMISTOR_TEMP", strconv.Itoa(t.HighTempLimit))
	}
	l.flag(t.Bed != "", string(t.Bed))
	if t.BedCode != nil {
		l.value("KNOWN_BED_THERMISTOR_VALUE", strconv.Itoa(*t.BedCode))
	}

	m := s.Misc
	l.flag(m.ReverseKnob, "REVERSE_KNOB_DIRECTION")
	l.flag(m.FanFix, "FAN_FIX")
	if m.PrinterName != "" {
		l.flag(true, "CUSTOM_PRINTER_NAME")
		l.value("USER_PRINTER_NAME", strconv.Quote(m.PrinterName))
	}
	l.flag(m.SlowerHoming, "SLOWER_HOMING")
	l.flag(m.ReverseX, "REVERSE_X_MOTOR")
	l.flag(m.ReverseY, "REVERSE_Y_MOTOR")
	l.flag(m.ReverseZ, "REVERSE_Z_MOTOR")

	l.flag(s.XtenderKit != "", string(s.XtenderKit))
	l.flag(s.FasterBaudrate, "FASTER_BAUDRATE")
	l.flag(s.BTTTouchScreen, "BTT_TOUCH_SCREEN")
	l.flag(s.SDCardEEPROM, "SDCARD_EEPROM_EMULATION")

	is := s.InputShaping
	l.flag(is.Enabled, "INPUT_SHAPING")
	l.value("INPUT_SHAPING_FREQ_X", FormatFloat(is.FreqX))
	l.value("INPUT_SHAPING_DAMPING_X", FormatFloat(is.DampingX)+"f")
	l.value("INPUT_SHAPING_FREQ_Y", FormatFloat(is.FreqY))
	l.value("INPUT_SHAPING_DAMPING_Y", FormatFloat(is.DampingY)+"f")

	if s.CustomBed.X != 0 {
		l.value("CUSTOM_X_BED_SIZE", strconv.Itoa(s.CustomBed.X))
	}
	if s.CustomBed.Y != 0 {
		l.value("CUSTOM_Y_BED_SIZE", strconv.Itoa(s.CustomBed.Y))
	}
	if s.CustomBed.Z != 0 {
		l.value("CUSTOM_Z_HEIGHT", strconv.Itoa(s.CustomBed.Z))
	}

	l.flag(s.HomeAdjust.Enabled, "HOME_ADJUST")
	l.value("X_HOME_LOCATION", FormatFloat(s.HomeAdjust.X))
	l.value("Y_HOME_LOCATION", FormatFloat(s.HomeAdjust.Y))
	l.flag(s.PIDBed, "ENABLE_PIDBED")
	l.flag(s.FineBabystepping, "FINE_BABYSTEPPING")
	l.flag(s.LinearAdvance.Enabled, "LINEAR_ADVANCE")
	l.value("LINEAR_ADVANCE_K", FormatFloat(s.LinearAdvance.K))
	l.flag(s.ManualMesh, "MANUAL_MESH_LEVELING")

	if sk := s.Skew; sk.Enabled {
		l.flag(true, "SKEW_CORRECTION")
		l.value("XY_DIAG_AC", FormatFloat(sk.XYDiagAC))
		l.value("XY_DIAG_BD", FormatFloat(sk.XYDiagBD))
		l.value("XY_SIDE_AD", FormatFloat(sk.XYSideAD))
		if sk.XYFactor != nil {
			l.value("XY_SKEW_FACTOR", FormatFloat(*sk.XYFactor))
		}
		l.flag(sk.ForZ, "SKEW_CORRECTION_FOR_Z")
		if sk.ForZ {
			l.value("XZ_DIAG_AC", FormatFloat(sk.XZDiagAC))
			l.value("XZ_DIAG_BD", FormatFloat(sk.XZDiagBD))
			l.value("YZ_DIAG_AC", FormatFloat(sk.YZDiagAC))
			l.value("YZ_DIAG_BD", FormatFloat(sk.YZDiagBD))
			l.value("YZ_SIDE_AD", FormatFloat(sk.YZSideAD))
			if sk.XZFactor != nil {
				l.value("XZ_SKEW_FACTOR", FormatFloat(*sk.XZFactor))
			}
			if sk.YZFactor != nil {
				l.value("YZ_SKEW_FACTOR", FormatFloat(*sk.YZFactor))
			}
		}
		l.flag(sk.Gcode, "SKEW_CORRECTION_GCODE")
	}

	l.flag(s.PowerLossRecovery, "POWER_LOSS_RECOVERY")
	l.flag(s.DisableArcSupport, "DISABLE_ARC_SUPPORT")
	l.flag(s.NoSDCard, "NO_SDCARD")
	return l
}

// metadata macros carried by every header that do not describe a choice.
var metadata = map[string]bool{
	"CONFIGURATION_H_VERSION":  true,
	"UNIFIED_VERSION":          true,
	"STRING_DISTRIBUTION_DATE": true,
}

type defineReader struct {
	defs  map[string]string
	used  map[string]bool
	warns []Warning
	errs  []error
}

func (r *defineReader) has(name string) bool {
	_, ok := r.defs[name]
	r.used[name] = true
	return ok
}

func (r *defineReader) fail(name, format string, args ...any) {
	r.errs = append(r.errs, errors.New(errors.ErrHeaderParse, fmt.Sprintf(format, args...)).SetMacro(name))
}

func (r *defineReader) float(name string, dst *float64) {
	if !r.has(name) {
		return
	}
	v, err := config.ParseNumber(r.defs[name])
	if err != nil {
		r.fail(name, "'%s' is not a number", r.defs[name])
		return
	}
	*dst = v
}

func (r *defineReader) floatPtr(name string, dst **float64) {
	if !r.has(name) {
		return
	}
	var v float64
	r.float(name, &v)
	*dst = &v
}

func (r *defineReader) int(name string, dst *int) {
	if !r.has(name) {
		return
	}
	v, err := config.ParseNumber(r.defs[name])
	if err != nil || v != math.Trunc(v) {
		r.fail(name, "'%s' is not an integer", r.defs[name])
		return
	}
	*dst = int(v)
}

func (r *defineReader) intPtr(name string, dst **int) {
	if !r.has(name) {
		return
	}
	var v int
	r.int(name, &v)
	*dst = &v
}

// firstOf returns the first of choices present in the defines; extra ones
// produce a warning naming the winner.
func firstOf[T ~string](r *defineReader, what string, choices []T) T {
	var found []T
	for _, c := range choices {
		if r.has(string(c)) {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		var zero T
		return zero
	}
	if len(found) > 1 {
		names := make([]string, len(found))
		for i, f := range found {
			names[i] = string(f)
		}
		r.warns = append(r.warns, Warning{
			Macro:   string(found[0]),
			Message: fmt.Sprintf("several %s options enabled (%s); %s takes precedence", what, strings.Join(names, ", "), found[0]),
		})
	}
	return found[0]
}

// FromDefines builds a Selection from the macros of a header's user section.
// defs maps macro names to their raw values ("" for flags). Several printers
// are kept so that Validate can reject them; where the firmware's own
// precedence picks among overlapping options, the winner is taken and a
// warning returned.
func FromDefines(defs map[string]string) (Selection, []Warning, error) {
	r := &defineReader{defs: defs, used: make(map[string]bool)}
	s := Default()

	for _, p := range machine.Printers() {
		if r.has(string(p)) {
			s.Printers = append(s.Printers, p)
		}
	}
	s.E3MiniV3F4CPU = r.has("E3MINIV3_F4CPU")

	s.FilamentSensor = firstOf(r, "filament sensor", machine.FilamentSensors())
	r.float("BTT_SFS_DISTANCE_MM", &s.BttSfsDistanceMM)
	s.ProbeMount = firstOf(r, "probe mount", machine.ProbeMounts())
	s.EZABLOnServoHeader = r.has("EZABL_ON_SERVO_HEADER")
	s.Ender5NewLeadscrew = r.has("ENDER5_NEW_LEADSCREW")
	// NOABL also switches off the leveling EZABL would provide.
	s.Ender5PlusABL = firstOf(r, "Ender 5 Plus leveling", []machine.E5PlusABL{machine.E5PlusNoABL, machine.E5PlusEZABL})
	s.EZNeo220 = r.has("EZNEO_220")

	if !r.has("EZABL_POINTS") && len(s.Printers) == 1 && s.Printers[0] == machine.Ender5Plus &&
		s.Ender5PlusABL == machine.E5PlusStockBLTouch {
		s.Probe.Points = 5
	}
	r.int("EZABL_POINTS", &s.Probe.Points)
	r.int("EZABL_PROBE_EDGE", &s.Probe.Edge)
	if r.has("ABL_UBL") {
		s.Probe.Leveling = machine.LevelingUBL
	}
	r.has("ABL_BILINEAR")
	s.Probe.FastProbe = r.has("EZABL_FASTPROBE")
	s.Probe.SuperFastProbe = r.has("EZABL_SUPERFASTPROBE")
	s.Probe.HeatersOnDuringProbing = r.has("HEATERS_ON_DURING_PROBING")
	s.Probe.ProbingSteppersOff = r.has("PROBING_STEPPERS_OFF")
	s.Probe.SlowerProbeMoves = r.has("SLOWER_PROBE_MOVES")
	s.Probe.ExtrapolateBeyondGrid = r.has("EXTRAPOLATE_BEYOND_GRID")
	s.Probe.BLTouch = r.has("BLTOUCH")
	s.Probe.BLTouchOn5Pin = r.has("BLTOUCH_ON_5PIN")
	if r.has("SERVO0_PIN") {
		s.Probe.ServoPin = r.defs["SERVO0_PIN"]
	}
	if r.has("NOZZLE_TO_PROBE_OFFSET") {
		off, err := ParseTriple(r.defs["NOZZLE_TO_PROBE_OFFSET"])
		if err != nil {
			r.fail("NOZZLE_TO_PROBE_OFFSET", "%v", err)
		} else {
			o := Offset(off)
			s.Probe.Offset = &o
		}
	}

	s.Extruder.CustomESteps = r.has("CUSTOM_ESTEPS")
	r.float("CUSTOM_ESTEPS_VALUE", &s.Extruder.ESteps)
	s.Extruder.ReverseE = r.has("REVERSE_E_MOTOR_DIRECTION")
	s.Unload.MountedFilamentSensor = r.has("MOUNTED_FILAMENT_SENSOR")
	s.Unload.DirectDrive = r.has("DIRECT_DRIVE_PRINTER")

	s.Thermistors.Hotend = firstOf(r, "hotend thermistor", machine.HotendThermistors())
	r.intPtr("KNOWN_HOTEND_THERMISTOR_VALUE", &s.Thermistors.HotendCode)
	s.Thermistors.HighTemp = r.has("HIGH_TEMP_THERMISTOR")
	r.int("HIGH_TEMP_THERMISTOR_TEMP", &s.Thermistors.HighTempLimit)
	s.Thermistors.Bed = firstOf(r, "bed thermistor", machine.BedThermistors())
	r.intPtr("KNOWN_BED_THERMISTOR_VALUE", &s.Thermistors.BedCode)

	s.Misc.ReverseKnob = r.has("REVERSE_KNOB_DIRECTION")
	s.Misc.FanFix = r.has("FAN_FIX")
	customName, userName := r.has("CUSTOM_PRINTER_NAME"), r.has("USER_PRINTER_NAME")
	if customName && userName {
		s.Misc.PrinterName = unquote(r.defs["USER_PRINTER_NAME"])
	}
	s.Misc.SlowerHoming = r.has("SLOWER_HOMING")
	s.Misc.ReverseX = r.has("REVERSE_X_MOTOR")
	s.Misc.ReverseY = r.has("REVERSE_Y_MOTOR")
	s.Misc.ReverseZ = r.has("REVERSE_Z_MOTOR")

	s.XtenderKit = pickKit(r, s.Printers)
	s.FasterBaudrate = r.has("FASTER_BAUDRATE")
	s.BTTTouchScreen = r.has("BTT_TOUCH_SCREEN")
	s.SDCardEEPROM = r.has("SDCARD_EEPROM_EMULATION")

	s.InputShaping.Enabled = r.has("INPUT_SHAPING")
	r.float("INPUT_SHAPING_FREQ_X", &s.InputShaping.FreqX)
	r.float("INPUT_SHAPING_DAMPING_X", &s.InputShaping.DampingX)
	r.float("INPUT_SHAPING_FREQ_Y", &s.InputShaping.FreqY)
	r.float("INPUT_SHAPING_DAMPING_Y", &s.InputShaping.DampingY)

	r.int("CUSTOM_X_BED_SIZE", &s.CustomBed.X)
	r.int("CUSTOM_Y_BED_SIZE", &s.CustomBed.Y)
	r.int("CUSTOM_Z_HEIGHT", &s.CustomBed.Z)

	s.HomeAdjust.Enabled = r.has("HOME_ADJUST")
	r.float("X_HOME_LOCATION", &s.HomeAdjust.X)
	r.float("Y_HOME_LOCATION", &s.HomeAdjust.Y)
	s.PIDBed = r.has("ENABLE_PIDBED")
	s.FineBabystepping = r.has("FINE_BABYSTEPPING")
	s.LinearAdvance.Enabled = r.has("LINEAR_ADVANCE")
	r.float("LINEAR_ADVANCE_K", &s.LinearAdvance.K)
	s.ManualMesh = r.has("MANUAL_MESH_LEVELING")

	s.Skew.Enabled = r.has("SKEW_CORRECTION")
	r.float("XY_DIAG_AC", &s.Skew.XYDiagAC)
	r.float("XY_DIAG_BD", &s.Skew.XYDiagBD)
	r.float("XY_SIDE_AD", &s.Skew.XYSideAD)
	r.floatPtr("XY_SKEW_FACTOR", &s.Skew.XYFactor)
	s.Skew.ForZ = r.has("SKEW_CORRECTION_FOR_Z")
	r.float("XZ_DIAG_AC", &s.Skew.XZDiagAC)
	r.float("XZ_DIAG_BD", &s.Skew.XZDiagBD)
	r.float("YZ_DIAG_AC", &s.Skew.YZDiagAC)
	r.float("YZ_DIAG_BD", &s.Skew.YZDiagBD)
	r.float("YZ_SIDE_AD", &s.Skew.YZSideAD)
	r.floatPtr("XZ_SKEW_FACTOR", &s.Skew.XZFactor)
	r.floatPtr("YZ_SKEW_FACTOR", &s.Skew.YZFactor)
	s.Skew.Gcode = r.has("SKEW_CORRECTION_GCODE")

	s.PowerLossRecovery = r.has("POWER_LOSS_RECOVERY")
	s.DisableArcSupport = r.has("DISABLE_ARC_SUPPORT")
	s.NoSDCard = r.has("NO_SDCARD")

	for _, name := range slices.Sorted(maps.Keys(defs)) {
		if !r.used[name] && !metadata[name] {
			r.warns = append(r.warns, Warning{Macro: name, Message: "unrecognized option ignored"})
		}
	}

	return s, r.warns, stderrors.Join(r.errs...)
}

// pickKit applies the firmware's rule that only kits of the selected model's
// family are read, in header order.
func pickKit(r *defineReader, printers []machine.Printer) machine.XtenderKit {
	var present []machine.XtenderKit
	for _, k := range machine.XtenderKits() {
		if r.has(string(k)) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return ""
	}
	chosen := present[0]
	if len(printers) == 1 {
		for _, k := range present {
			if k.Fits(printers[0]) {
				chosen = k
				break
			}
		}
	}
	if len(present) > 1 {
		names := make([]string, len(present))
		for i, k := range present {
			names[i] = string(k)
		}
		r.warns = append(r.warns, Warning{
			Macro:   string(chosen),
			Message: fmt.Sprintf("several Xtender kits enabled (%s); %s takes precedence", strings.Join(names, ", "), chosen),
		})
	}
	return chosen
}

// ParseTriple parses "{ a, b, c }" into three numbers.
func ParseTriple(v string) ([3]float64, error) {
	var out [3]float64
	t := strings.TrimSpace(v)
	if !strings.HasPrefix(t, "{") || !strings.HasSuffix(t, "}") {
		return out, fmt.Errorf("'%s' is not a { x, y, z } array", v)
	}
	parts := strings.Split(t[1:len(t)-1], ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("'%s' must have exactly three elements", v)
	}
	for i, p := range parts {
		f, err := config.ParseNumber(p)
		if err != nil {
			return out, fmt.Errorf("element %d of '%s' is not a number", i, v)
		}
		out[i] = f
	}
	return out, nil
}

func unquote(v string) string {
	if s, err := strconv.Unquote(strings.TrimSpace(v)); err == nil {
		return s
	}
	return strings.Trim(strings.TrimSpace(v), `"`)
}

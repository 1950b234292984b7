package resolve

import (
	"strconv"

	"ufwcfg/pkg/inputshaper"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/selection"
	"ufwcfg/pkg/skew"
)

// Board-level values that do not depend on the selection.
const (
	SerialPort       = 2
	SerialPort2      = -1
	BaudrateDefault  = 115200
	BaudrateFast     = 250000
	Motherboard      = "BOARD_BTT_SKR_MINI_E3_V3_0"
	MotherboardF4CPU = "BOARD_BTT_SKR_MINI_E3_V3_0_1"
	DriverType       = "TMC2209"
	XYStepsPerUnit   = 80
	ZStepsStock      = 400
	ZStepsLeadscrew  = 800
	StockESteps      = 424.09
	RunoutScript     = "M600"
	ProbeOffsetRange = 10
)

// PIDParams holds one set of PID gains.
type PIDParams struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`
}

// Stock gains for the hotend and bed heaters.
var (
	HotendPID = PIDParams{Kp: 27.9849, Ki: 5.3002, Kd: 36.9401}
	BedPID    = PIDParams{Kp: 462.10, Ki: 85.47, Kd: 624.59}
)

// HomeDir holds the homing direction of each axis, -1 toward min, 1 toward max.
type HomeDir struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

// InvertDir holds the stepper direction inversion flags.
type InvertDir struct {
	X  bool `yaml:"x" json:"x"`
	Y  bool `yaml:"y" json:"y"`
	Z  bool `yaml:"z" json:"z"`
	E0 bool `yaml:"e0" json:"e0"`
}

// Filament describes the runout sensor wiring.
type Filament struct {
	Sensor      machine.FilamentSensor `yaml:"sensor" json:"sensor"`
	RunoutState string                 `yaml:"runout_state" json:"runout_state"`
	// DistanceMM is only set for motion sensors.
	DistanceMM   float64 `yaml:"distance_mm,omitempty" json:"distance_mm,omitempty"`
	MotionSensor bool    `yaml:"motion_sensor,omitempty" json:"motion_sensor,omitempty"`
}

// Shaping holds the per-axis shaper pulse trains.
type Shaping struct {
	X inputshaper.Shaper `yaml:"x" json:"x"`
	Y inputshaper.Shaper `yaml:"y" json:"y"`
}

// Skew holds the effective correction factors.
type Skew struct {
	Factors skew.Factors `yaml:"factors" json:"factors"`
	ForZ    bool         `yaml:"for_z,omitempty" json:"for_z,omitempty"`
	// Computed lists the planes whose factor came from diagonal measurements.
	Computed []string `yaml:"computed,omitempty" json:"computed,omitempty"`
}

// Constants is the resolved bundle the firmware build consumes.
type Constants struct {
	Printer machine.Printer `yaml:"printer" json:"printer"`
	Family  machine.Printer `yaml:"family" json:"family"`
	// Derived lists the flags the firmware switches on by itself that the
	// selection left off, in the order they are derived.
	Derived []string `yaml:"derived,omitempty" json:"derived,omitempty"`

	CustomProbe    bool   `yaml:"custom_probe" json:"custom_probe"`
	SerialPort     int    `yaml:"serial_port" json:"serial_port"`
	SerialPort2    int    `yaml:"serial_port_2" json:"serial_port_2"`
	Voltage        int    `yaml:"voltage" json:"voltage"`
	Baudrate       int    `yaml:"baudrate" json:"baudrate"`
	Motherboard    string `yaml:"motherboard" json:"motherboard"`
	ReverseEncoder bool   `yaml:"reverse_encoder" json:"reverse_encoder"`

	ZSteps       int            `yaml:"z_steps" json:"z_steps"`
	StepsPerUnit [4]float64     `yaml:"steps_per_unit" json:"steps_per_unit"`
	Extruders    int            `yaml:"extruders" json:"extruders"`
	Bed          machine.Volume `yaml:"bed" json:"bed"`
	DualZ        bool           `yaml:"dual_z" json:"dual_z"`
	XMinPos      float64        `yaml:"x_min_pos" json:"x_min_pos"`
	YMinPos      float64        `yaml:"y_min_pos" json:"y_min_pos"`
	Plugs        []string       `yaml:"plugs" json:"plugs"`
	HomeDir      HomeDir        `yaml:"home_dir" json:"home_dir"`

	TempSensor0   int       `yaml:"temp_sensor_0" json:"temp_sensor_0"`
	TempSensorBed int       `yaml:"temp_sensor_bed" json:"temp_sensor_bed"`
	HotendPID     PIDParams `yaml:"hotend_pid" json:"hotend_pid"`
	BedPID        PIDParams `yaml:"bed_pid" json:"bed_pid"`

	UseProbeForZHoming bool      `yaml:"use_probe_for_z_homing" json:"use_probe_for_z_homing"`
	InvertDir          InvertDir `yaml:"invert_dir" json:"invert_dir"`

	BLTouch          bool                `yaml:"bltouch" json:"bltouch"`
	SlowerProbeMoves bool                `yaml:"slower_probe_moves" json:"slower_probe_moves"`
	ProbeOffset      *selection.Offset   `yaml:"probe_offset,omitempty" json:"probe_offset,omitempty"`
	StockProbeOffset bool                `yaml:"stock_probe_offset,omitempty" json:"stock_probe_offset,omitempty"`
	ProbePoints      int                 `yaml:"probe_points" json:"probe_points"`
	ProbeEdge        int                 `yaml:"probe_edge" json:"probe_edge"`
	Leveling         machine.BedLeveling `yaml:"leveling" json:"leveling"`
	ABLEnable        bool                `yaml:"abl_enable" json:"abl_enable"`

	Filament     *Filament `yaml:"filament,omitempty" json:"filament,omitempty"`
	UnloadLength float64   `yaml:"unload_length" json:"unload_length"`
	EZNeo        bool      `yaml:"ezneo,omitempty" json:"ezneo,omitempty"`
	Shaping      *Shaping  `yaml:"shaping,omitempty" json:"shaping,omitempty"`
	Skew         *Skew     `yaml:"skew,omitempty" json:"skew,omitempty"`

	Warnings []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

type defineList []selection.Define

func (l *defineList) flag(on bool, name string) {
	if on {
		*l = append(*l, selection.Define{Name: name})
	}
}

func (l *defineList) value(name, v string) {
	*l = append(*l, selection.Define{Name: name, Value: v})
}

func (l *defineList) int(name string, v int) {
	l.value(name, strconv.Itoa(v))
}

func (l *defineList) float(name string, v float64) {
	l.value(name, selection.FormatFloat(v))
}

func (l *defineList) bool(name string, v bool) {
	l.value(name, strconv.FormatBool(v))
}

// Defines returns the derived section of the header as ordered macros.
func (c *Constants) Defines() []selection.Define {
	var l defineList
	for _, d := range c.Derived {
		l.flag(true, d)
	}
	if c.StockProbeOffset && c.ProbeOffset != nil {
		l.value("NOZZLE_TO_PROBE_OFFSET", selection.FormatTriple(*c.ProbeOffset))
	}

	l.int("SERIAL_PORT", c.SerialPort)
	l.int("SERIAL_PORT_2", c.SerialPort2)
	l.flag(true, "PRINTER_VOLTAGE_"+strconv.Itoa(c.Voltage))
	l.int("BAUDRATE", c.Baudrate)
	l.flag(true, "CR10_STOCKDISPLAY")
	l.flag(c.ReverseEncoder, "REVERSE_ENCODER_DIRECTION")
	l.flag(true, "SKR_E3_MINI_V3_0")
	l.value("MOTHERBOARD", c.Motherboard)
	l.int("CREALITY_Z_STEPS", c.ZSteps)
	l.value("DEFAULT_AXIS_STEPS_PER_UNIT", formatArray(c.StepsPerUnit[:]))
	l.flag(true, "SHOW_BOOTSCREEN")
	l.int("EXTRUDERS", c.Extruders)

	l.flag(c.DualZ, "DUAL_Z_MOTORS")
	l.int("X_BED_SIZE", c.Bed.X)
	l.int("Y_BED_SIZE", c.Bed.Y)
	l.int("Z_MAX_POS", c.Bed.Z)
	l.float("X_MIN_POS", c.XMinPos)
	l.float("Y_MIN_POS", c.YMinPos)
	for _, p := range c.Plugs {
		l.flag(true, "USE_"+p+"_PLUG")
	}
	l.int("X_HOME_DIR", c.HomeDir.X)
	l.int("Y_HOME_DIR", c.HomeDir.Y)
	l.int("Z_HOME_DIR", c.HomeDir.Z)

	l.int("TEMP_SENSOR_0", c.TempSensor0)
	for i := 1; i <= 7; i++ {
		l.int("TEMP_SENSOR_"+strconv.Itoa(i), 0)
	}
	l.int("TEMP_SENSOR_BED", c.TempSensorBed)
	l.int("TEMP_SENSOR_PROBE", 0)
	l.int("TEMP_SENSOR_CHAMBER", 0)

	l.float("DEFAULT_Kp", c.HotendPID.Kp)
	l.float("DEFAULT_Ki", c.HotendPID.Ki)
	l.float("DEFAULT_Kd", c.HotendPID.Kd)
	l.value("DEFAULT_bedKp", strconv.FormatFloat(c.BedPID.Kp, 'f', 2, 64))
	l.value("DEFAULT_bedKi", strconv.FormatFloat(c.BedPID.Ki, 'f', 2, 64))
	l.value("DEFAULT_bedKd", strconv.FormatFloat(c.BedPID.Kd, 'f', 2, 64))

	l.flag(true, "ENDSTOPPULLUPS")
	for _, e := range []string{"X_MIN", "Y_MIN", "Z_MIN", "X_MAX", "Y_MAX", "Z_MAX", "Z_MIN_PROBE"} {
		l.bool(e+"_ENDSTOP_INVERTING", false)
	}
	l.flag(c.UseProbeForZHoming, "USE_PROBE_FOR_Z_HOMING")
	l.flag(!c.UseProbeForZHoming, "Z_MIN_PROBE_USES_Z_MIN_ENDSTOP_PIN")

	for _, axis := range []string{"X", "Y", "Z", "E0"} {
		l.value(axis+"_DRIVER_TYPE", DriverType)
	}
	for _, axis := range []string{"X", "Y", "Z", "E"} {
		l.int(axis+"_ENABLE_ON", 0)
	}
	l.bool("INVERT_X_DIR", c.InvertDir.X)
	l.bool("INVERT_Y_DIR", c.InvertDir.Y)
	l.bool("INVERT_Z_DIR", c.InvertDir.Z)
	l.bool("INVERT_E0_DIR", c.InvertDir.E0)
	for i := 1; i <= 7; i++ {
		l.bool("INVERT_E"+strconv.Itoa(i)+"_DIR", false)
	}

	l.int("ENCODER_PULSES_PER_STEP", 4)
	l.int("ENCODER_STEPS_PER_MENU_ITEM", 1)
	l.int("Z_PROBE_OFFSET_RANGE_MIN", -ProbeOffsetRange)
	l.int("Z_PROBE_OFFSET_RANGE_MAX", ProbeOffsetRange)
	l.flag(c.ABLEnable, "ABL_ENABLE")

	if f := c.Filament; f != nil {
		l.flag(true, "FILAMENT_RUNOUT_SENSOR")
		l.bool("FIL_RUNOUT_ENABLED_DEFAULT", true)
		l.int("NUM_RUNOUT_SENSORS", 1)
		l.value("FIL_RUNOUT_STATE", f.RunoutState)
		l.flag(true, "FIL_RUNOUT_PULLUP")
		l.value("FILAMENT_RUNOUT_SCRIPT", strconv.Quote(RunoutScript))
		if f.MotionSensor {
			l.float("FILAMENT_RUNOUT_DISTANCE_MM", f.DistanceMM)
			l.flag(true, "FILAMENT_MOTION_SENSOR")
		}
	}
	l.float("FILAMENT_CHANGE_UNLOAD_LENGTH", c.UnloadLength)

	if c.EZNeo {
		l.flag(true, "RGB_LIGHTS")
		l.flag(true, "NEOPIXEL_LED")
		l.value("NEOPIXEL_TYPE", "NEO_GRB")
		l.int("NEOPIXEL_PIXELS", 15)
		l.flag(true, "NEOPIXEL_IS_SEQUENTIAL")
		l.int("NEOPIXEL_BRIGHTNESS", 255)
		l.flag(true, "NEOPIXEL_STARTUP_TEST")
		l.flag(true, "PRINTER_EVENT_LEDS")
	}

	if sh := c.Shaping; sh != nil {
		l.flag(true, "INPUT_SHAPING_X")
		l.flag(true, "INPUT_SHAPING_Y")
		l.float("SHAPING_FREQ_X", sh.X.Freq)
		l.value("SHAPING_ZETA_X", selection.FormatFloat(sh.X.Damping)+"f")
		l.float("SHAPING_FREQ_Y", sh.Y.Freq)
		l.value("SHAPING_ZETA_Y", selection.FormatFloat(sh.Y.Damping)+"f")
	}

	if sk := c.Skew; sk != nil {
		for _, plane := range sk.Computed {
			switch plane {
			case "XY":
				l.float("XY_SKEW_FACTOR", sk.Factors.XY)
			case "XZ":
				l.float("XZ_SKEW_FACTOR", sk.Factors.XZ)
			case "YZ":
				l.float("YZ_SKEW_FACTOR", sk.Factors.YZ)
			}
		}
	}
	return l
}

func formatArray(v []float64) string {
	s := "{ "
	for i, f := range v {
		if i > 0 {
			s += ", "
		}
		s += selection.FormatFloat(f)
	}
	return s + " }"
}

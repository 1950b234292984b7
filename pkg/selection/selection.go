// Package selection holds the typed set of user choices that replaces the
// hand-edited configuration section of a firmware header.
package selection

import (
	"ufwcfg/pkg/inputshaper"
	"ufwcfg/pkg/machine"
)

// Offset is a nozzle-to-probe offset {X, Y, Z} in millimetres.
type Offset [3]float64

// Probe holds the leveling options shared by every probe type.
type Probe struct {
	Points                 int                 `yaml:"points" json:"points"`
	Edge                   int                 `yaml:"edge" json:"edge"`
	Leveling               machine.BedLeveling `yaml:"leveling" json:"leveling"`
	FastProbe              bool                `yaml:"fast_probe,omitempty" json:"fast_probe,omitempty"`
	SuperFastProbe         bool                `yaml:"superfast_probe,omitempty" json:"superfast_probe,omitempty"`
	HeatersOnDuringProbing bool                `yaml:"heaters_on_during_probing,omitempty" json:"heaters_on_during_probing,omitempty"`
	ProbingSteppersOff     bool                `yaml:"probing_steppers_off,omitempty" json:"probing_steppers_off,omitempty"`
	SlowerProbeMoves       bool                `yaml:"slower_probe_moves,omitempty" json:"slower_probe_moves,omitempty"`
	ExtrapolateBeyondGrid  bool                `yaml:"extrapolate_beyond_grid,omitempty" json:"extrapolate_beyond_grid,omitempty"`

	BLTouch       bool    `yaml:"bltouch,omitempty" json:"bltouch,omitempty"`
	BLTouchOn5Pin bool    `yaml:"bltouch_on_5pin,omitempty" json:"bltouch_on_5pin,omitempty"`
	ServoPin      string  `yaml:"servo_pin,omitempty" json:"servo_pin,omitempty"`
	Offset        *Offset `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Extruder holds e-step and direction overrides.
type Extruder struct {
	CustomESteps bool    `yaml:"custom_esteps,omitempty" json:"custom_esteps,omitempty"`
	ESteps       float64 `yaml:"esteps,omitempty" json:"esteps,omitempty"`
	ReverseE     bool    `yaml:"reverse_e,omitempty" json:"reverse_e,omitempty"`
}

// Unload describes the filament path for the unload length.
type Unload struct {
	MountedFilamentSensor bool `yaml:"mounted_filament_sensor,omitempty" json:"mounted_filament_sensor,omitempty"`
	DirectDrive           bool `yaml:"direct_drive,omitempty" json:"direct_drive,omitempty"`
}

// Thermistors selects the hotend and bed sensors.
type Thermistors struct {
	Hotend        machine.HotendThermistor `yaml:"hotend,omitempty" json:"hotend,omitempty"`
	HotendCode    *int                     `yaml:"hotend_code,omitempty" json:"hotend_code,omitempty"`
	Bed           machine.BedThermistor    `yaml:"bed,omitempty" json:"bed,omitempty"`
	BedCode       *int                     `yaml:"bed_code,omitempty" json:"bed_code,omitempty"`
	HighTemp      bool                     `yaml:"high_temp,omitempty" json:"high_temp,omitempty"`
	HighTempLimit int                      `yaml:"high_temp_limit,omitempty" json:"high_temp_limit,omitempty"`
}

// Misc collects the small behaviour toggles.
type Misc struct {
	ReverseKnob  bool   `yaml:"reverse_knob,omitempty" json:"reverse_knob,omitempty"`
	FanFix       bool   `yaml:"fan_fix,omitempty" json:"fan_fix,omitempty"`
	PrinterName  string `yaml:"printer_name,omitempty" json:"printer_name,omitempty"`
	SlowerHoming bool   `yaml:"slower_homing,omitempty" json:"slower_homing,omitempty"`
	ReverseX     bool   `yaml:"reverse_x,omitempty" json:"reverse_x,omitempty"`
	ReverseY     bool   `yaml:"reverse_y,omitempty" json:"reverse_y,omitempty"`
	ReverseZ     bool   `yaml:"reverse_z,omitempty" json:"reverse_z,omitempty"`
}

// InputShaping holds per-axis resonance parameters.
type InputShaping struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	FreqX    float64 `yaml:"freq_x" json:"freq_x"`
	DampingX float64 `yaml:"damping_x" json:"damping_x"`
	FreqY    float64 `yaml:"freq_y" json:"freq_y"`
	DampingY float64 `yaml:"damping_y" json:"damping_y"`
}

// BedSize overrides the model geometry. Zero means "use the model's value".
type BedSize struct {
	X int `yaml:"x,omitempty" json:"x,omitempty"`
	Y int `yaml:"y,omitempty" json:"y,omitempty"`
	Z int `yaml:"z,omitempty" json:"z,omitempty"`
}

// HomeAdjust moves the home position off the bed edge.
type HomeAdjust struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	X       float64 `yaml:"x" json:"x"`
	Y       float64 `yaml:"y" json:"y"`
}

// LinearAdvance enables pressure compensation with factor K.
type LinearAdvance struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	K       float64 `yaml:"k" json:"k"`
}

// Skew holds calibration-square measurements or direct factors per plane.
type Skew struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	XYDiagAC float64  `yaml:"xy_diag_ac" json:"xy_diag_ac"`
	XYDiagBD float64  `yaml:"xy_diag_bd" json:"xy_diag_bd"`
	XYSideAD float64  `yaml:"xy_side_ad" json:"xy_side_ad"`
	XYFactor *float64 `yaml:"xy_factor,omitempty" json:"xy_factor,omitempty"`

	ForZ     bool     `yaml:"for_z,omitempty" json:"for_z,omitempty"`
	XZDiagAC float64  `yaml:"xz_diag_ac" json:"xz_diag_ac"`
	XZDiagBD float64  `yaml:"xz_diag_bd" json:"xz_diag_bd"`
	YZDiagAC float64  `yaml:"yz_diag_ac" json:"yz_diag_ac"`
	YZDiagBD float64  `yaml:"yz_diag_bd" json:"yz_diag_bd"`
	YZSideAD float64  `yaml:"yz_side_ad" json:"yz_side_ad"`
	XZFactor *float64 `yaml:"xz_factor,omitempty" json:"xz_factor,omitempty"`
	YZFactor *float64 `yaml:"yz_factor,omitempty" json:"yz_factor,omitempty"`

	Gcode bool `yaml:"gcode,omitempty" json:"gcode,omitempty"`
}

// Selection carries every user-facing option of the firmware configuration.
// Printers is a list so that zero or several enabled models can be reported;
// a valid Selection names exactly one.
type Selection struct {
	Printers       []machine.Printer      `yaml:"printers" json:"printers"`
	E3MiniV3F4CPU  bool                   `yaml:"e3mini_v3_f4cpu,omitempty" json:"e3mini_v3_f4cpu,omitempty"`
	XtenderKit     machine.XtenderKit     `yaml:"xtender_kit,omitempty" json:"xtender_kit,omitempty"`
	FilamentSensor machine.FilamentSensor `yaml:"filament_sensor,omitempty" json:"filament_sensor,omitempty"`
	// BttSfsDistanceMM is only used with the BTT smart filament sensor.
	BttSfsDistanceMM   float64            `yaml:"btt_sfs_distance_mm" json:"btt_sfs_distance_mm"`
	ProbeMount         machine.ProbeMount `yaml:"probe_mount,omitempty" json:"probe_mount,omitempty"`
	EZABLOnServoHeader bool               `yaml:"ezabl_on_servo_header,omitempty" json:"ezabl_on_servo_header,omitempty"`
	Ender5NewLeadscrew bool               `yaml:"ender5_new_leadscrew,omitempty" json:"ender5_new_leadscrew,omitempty"`
	Ender5PlusABL      machine.E5PlusABL  `yaml:"ender5_plus_abl,omitempty" json:"ender5_plus_abl,omitempty"`
	EZNeo220           bool               `yaml:"ezneo_220,omitempty" json:"ezneo_220,omitempty"`

	Probe       Probe       `yaml:"probe" json:"probe"`
	Extruder    Extruder    `yaml:"extruder" json:"extruder"`
	Unload      Unload      `yaml:"unload" json:"unload"`
	Thermistors Thermistors `yaml:"thermistors" json:"thermistors"`
	Misc        Misc        `yaml:"misc" json:"misc"`

	FasterBaudrate    bool `yaml:"faster_baudrate,omitempty" json:"faster_baudrate,omitempty"`
	BTTTouchScreen    bool `yaml:"btt_touch_screen,omitempty" json:"btt_touch_screen,omitempty"`
	SDCardEEPROM      bool `yaml:"sdcard_eeprom_emulation,omitempty" json:"sdcard_eeprom_emulation,omitempty"`
	PIDBed            bool `yaml:"pid_bed,omitempty" json:"pid_bed,omitempty"`
	FineBabystepping  bool `yaml:"fine_babystepping,omitempty" json:"fine_babystepping,omitempty"`
	ManualMesh        bool `yaml:"manual_mesh_leveling,omitempty" json:"manual_mesh_leveling,omitempty"`
	PowerLossRecovery bool `yaml:"power_loss_recovery,omitempty" json:"power_loss_recovery,omitempty"`
	DisableArcSupport bool `yaml:"disable_arc_support,omitempty" json:"disable_arc_support,omitempty"`
	NoSDCard          bool `yaml:"no_sdcard,omitempty" json:"no_sdcard,omitempty"`

	InputShaping  InputShaping  `yaml:"input_shaping" json:"input_shaping"`
	CustomBed     BedSize       `yaml:"custom_bed" json:"custom_bed"`
	HomeAdjust    HomeAdjust    `yaml:"home_adjust" json:"home_adjust"`
	LinearAdvance LinearAdvance `yaml:"linear_advance" json:"linear_advance"`
	Skew          Skew          `yaml:"skew" json:"skew"`
}

// Numeric defaults written in the stock header.
const (
	DefaultProbePoints      = 9
	DefaultProbeEdge        = 15
	DefaultBttSfsDistanceMM = 7
	DefaultESteps           = 424.09
	DefaultHomeLocation     = -10
	DefaultLinearAdvanceK   = 0.1
	DefaultSkewDiagonal     = 282.8427124746
	DefaultSkewSide         = 200
)

// Default returns a Selection with all toggles off and the header's numeric
// defaults. No printer is selected.
func Default() Selection {
	return Selection{
		BttSfsDistanceMM: DefaultBttSfsDistanceMM,
		Probe: Probe{
			Points:   DefaultProbePoints,
			Edge:     DefaultProbeEdge,
			Leveling: machine.LevelingBilinear,
		},
		Extruder: Extruder{ESteps: DefaultESteps},
		InputShaping: InputShaping{
			FreqX:    inputshaper.DefaultFrequency,
			DampingX: inputshaper.DefaultDampingRatio,
			FreqY:    inputshaper.DefaultFrequency,
			DampingY: inputshaper.DefaultDampingRatio,
		},
		HomeAdjust:    HomeAdjust{X: DefaultHomeLocation, Y: DefaultHomeLocation},
		LinearAdvance: LinearAdvance{K: DefaultLinearAdvanceK},
		Skew: Skew{
			XYDiagAC: DefaultSkewDiagonal, XYDiagBD: DefaultSkewDiagonal, XYSideAD: DefaultSkewSide,
			XZDiagAC: DefaultSkewDiagonal, XZDiagBD: DefaultSkewDiagonal,
			YZDiagAC: DefaultSkewDiagonal, YZDiagBD: DefaultSkewDiagonal, YZSideAD: DefaultSkewSide,
		},
	}
}

// For returns Default with the given printer selected.
func For(p machine.Printer) Selection {
	s := Default()
	s.Printers = []machine.Printer{p}
	return s
}

// Printer returns the selected model. It is only meaningful after Validate
// has accepted the selection.
func (s Selection) Printer() machine.Printer {
	if len(s.Printers) == 0 {
		return ""
	}
	return s.Printers[0]
}

// CustomProbe reports whether the user-selected probe needs explicit offsets.
func (s Selection) CustomProbe() bool {
	return s.Probe.BLTouch || s.ProbeMount == machine.MountCustom
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	c := s
	c.Printers = append([]machine.Printer(nil), s.Printers...)
	c.Probe.Offset = clonePtr(s.Probe.Offset)
	c.Thermistors.HotendCode = clonePtr(s.Thermistors.HotendCode)
	c.Thermistors.BedCode = clonePtr(s.Thermistors.BedCode)
	c.Skew.XYFactor = clonePtr(s.Skew.XYFactor)
	c.Skew.XZFactor = clonePtr(s.Skew.XZFactor)
	c.Skew.YZFactor = clonePtr(s.Skew.YZFactor)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

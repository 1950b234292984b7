package selection

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ufwcfg/pkg/config"
	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/inputshaper"
	"ufwcfg/pkg/machine"
)

// Environment variables applied on top of any loaded selection.
const (
	EnvPrinter      = "UFW_PRINTER"
	EnvBaudrateFast = "UFW_BAUDRATE_FAST"
)

// LoadINI reads a selection file in the INI dialect. Overlays are merged
// over the file in order before anything is decoded, so they go through the
// same checks as the file itself.
func LoadINI(path string, overlays ...*config.Config) (Selection, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Selection{}, err
	}
	for _, o := range overlays {
		cfg.Merge(o)
	}
	return FromConfig(cfg)
}

// FromConfig decodes a parsed INI config. Unknown sections and options are
// reported together with value errors.
func FromConfig(cfg *config.Config) (Selection, error) {
	s := Default()
	reg := config.NewRegistry()
	registerDecoders(reg, &s)
	if err := reg.Decode(cfg); err != nil {
		return Selection{}, err
	}
	s.Normalize()
	return s, nil
}

// LoadYAML decodes a YAML selection. Fields not present keep their defaults;
// unknown fields are rejected.
func LoadYAML(r io.Reader) (Selection, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return Selection{}, errors.Wrap(err, errors.ErrConfigType, "invalid selection YAML: "+err.Error())
	}
	s.Normalize()
	return s, nil
}

// YAML encodes the selection in the form LoadYAML reads.
func (s Selection) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// EnvConfig returns the UFW_PRINTER and UFW_BAUDRATE_FAST overrides read
// through getenv (os.Getenv when nil) as a config layer. The values land in
// the [printer] options a selection file would use for them.
func EnvConfig(getenv func(string) string) *config.Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := config.New()
	if v := strings.TrimSpace(getenv(EnvPrinter)); v != "" {
		cfg.Set("printer", "model", v)
	}
	if v := strings.TrimSpace(getenv(EnvBaudrateFast)); v != "" {
		cfg.Set("printer", "faster_baudrate", v)
	}
	return cfg
}

// ApplyEnv decodes the EnvConfig layer onto s. s is left untouched when any
// override is invalid.
func ApplyEnv(s *Selection, getenv func(string) string) error {
	env := EnvConfig(getenv)
	if len(env.GetSectionNames()) == 0 {
		return nil
	}
	next := s.Clone()
	reg := config.NewRegistry()
	registerDecoders(reg, &next)
	if err := reg.Decode(env); err != nil {
		return fmt.Errorf("%s/%s: %w", EnvPrinter, EnvBaudrateFast, err)
	}
	next.Normalize()
	*s = next
	return nil
}

// Normalize canonicalizes enum spellings. Unknown names are left alone for
// Validate to report.
func (s *Selection) Normalize() {
	for i, p := range s.Printers {
		if v, err := machine.ParsePrinter(string(p)); err == nil {
			s.Printers[i] = v
		}
	}
	norm(&s.XtenderKit, machine.ParseXtenderKit)
	norm(&s.FilamentSensor, machine.ParseFilamentSensor)
	norm(&s.ProbeMount, machine.ParseProbeMount)
	norm(&s.Ender5PlusABL, machine.ParseE5PlusABL)
	norm(&s.Probe.Leveling, machine.ParseBedLeveling)
	norm(&s.Thermistors.Hotend, machine.ParseHotendThermistor)
	norm(&s.Thermistors.Bed, machine.ParseBedThermistor)
	if s.Probe.ServoPin != "" {
		if pin, err := config.ParsePin(s.Probe.ServoPin, config.PinOptions{}); err == nil {
			s.Probe.ServoPin = pin.Name
		}
	}
}

func norm[T ~string](v *T, parse func(string) (T, error)) {
	if p, err := parse(string(*v)); err == nil {
		*v = p
	}
}

// getEnum reads a macro-name option. A blank value or one of blanks picks
// the zero value; anything else must name one of all.
func getEnum[T ~string](sec *config.Section, option string, dst *T, all []T, blanks ...string) error {
	if !sec.HasOption(option) {
		return nil
	}
	choices := make([]string, 0, len(all)+len(blanks))
	for _, c := range all {
		choices = append(choices, string(c))
	}
	if raw, _ := sec.Get(option); strings.TrimSpace(raw) == "" {
		*dst = ""
		return nil
	}
	v, err := sec.GetChoice(option, append(choices, blanks...))
	if err != nil {
		return err
	}
	*dst = T(v)
	for _, b := range blanks {
		if v == b {
			*dst = ""
		}
	}
	return nil
}

func getBools(sec *config.Section, opts map[string]*bool) error {
	var errs []error
	for name, dst := range opts {
		v, err := sec.GetBool(name, *dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = v
	}
	return stderrors.Join(errs...)
}

func getFloats(sec *config.Section, opts map[string]*float64) error {
	var errs []error
	for name, dst := range opts {
		v, err := sec.GetFloat(name, *dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = v
	}
	return stderrors.Join(errs...)
}

func getInts(sec *config.Section, opts map[string]*int) error {
	var errs []error
	for name, dst := range opts {
		v, err := sec.GetInt(name, *dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = v
	}
	return stderrors.Join(errs...)
}

// getCount reads an integer that cannot be negative.
func getCount(sec *config.Section, option string, dst *int) error {
	zero := 0
	v, err := sec.GetIntWithBounds(option, &zero, nil, *dst)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

var (
	shapingZero, shapingOne, shapingMaxFreq = 0.0, 1.0, inputshaper.MaxFrequency

	freqBounds    = config.FloatBounds{Above: &shapingZero, MaxVal: &shapingMaxFreq}
	dampingBounds = config.FloatBounds{MinVal: &shapingZero, MaxVal: &shapingOne}
)

func getShaping(sec *config.Section, option string, dst *float64, bounds config.FloatBounds) error {
	v, err := sec.GetFloatWithBounds(option, bounds, *dst)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func getFloatPtr(sec *config.Section, option string, dst **float64) error {
	v, err := sec.GetFloatOptional(option)
	if err != nil {
		return err
	}
	if v != nil {
		*dst = v
	}
	return nil
}

func registerDecoders(reg *config.Registry, s *Selection) {
	reg.Register("printer", func(sec *config.Section) error {
		var errs []error
		if sec.HasOption("model") {
			models, _ := sec.GetList("model", ",")
			s.Printers = s.Printers[:0]
			for _, m := range models {
				p, err := machine.ParsePrinter(m)
				if err != nil {
					errs = append(errs, config.WrapError(sec.GetName(), "model", err))
					continue
				}
				s.Printers = append(s.Printers, p)
			}
		}
		if sec.HasOption("name") {
			s.Misc.PrinterName, _ = sec.Get("name")
		}
		errs = append(errs,
			getEnum(sec, "xtender_kit", &s.XtenderKit, machine.XtenderKits(), "none"),
			getEnum(sec, "ender5_plus_abl", &s.Ender5PlusABL, machine.E5PlusABLs(), "stock", "none"),
			getBools(sec, map[string]*bool{
				"e3mini_v3_f4cpu":         &s.E3MiniV3F4CPU,
				"ender5_new_leadscrew":    &s.Ender5NewLeadscrew,
				"ezneo_220":               &s.EZNeo220,
				"faster_baudrate":         &s.FasterBaudrate,
				"btt_touch_screen":        &s.BTTTouchScreen,
				"sdcard_eeprom_emulation": &s.SDCardEEPROM,
				"no_sdcard":               &s.NoSDCard,
				"power_loss_recovery":     &s.PowerLossRecovery,
				"disable_arc_support":     &s.DisableArcSupport,
			}))
		return stderrors.Join(errs...)
	})

	reg.Register("filament", func(sec *config.Section) error {
		return stderrors.Join(
			getEnum(sec, "sensor", &s.FilamentSensor, machine.FilamentSensors(), "none"),
			getFloats(sec, map[string]*float64{"btt_sfs_distance_mm": &s.BttSfsDistanceMM}),
			getBools(sec, map[string]*bool{
				"mounted_sensor": &s.Unload.MountedFilamentSensor,
				"direct_drive":   &s.Unload.DirectDrive,
			}))
	})

	reg.Register("probe", func(sec *config.Section) error {
		p := &s.Probe
		errs := []error{
			getEnum(sec, "mount", &s.ProbeMount, machine.ProbeMounts(), "none"),
			getEnum(sec, "leveling", &p.Leveling, machine.BedLevelings()),
			getInts(sec, map[string]*int{"points": &p.Points}),
			getCount(sec, "edge", &p.Edge),
			getBools(sec, map[string]*bool{
				"ezabl_on_servo_header":     &s.EZABLOnServoHeader,
				"fast_probe":                &p.FastProbe,
				"superfast_probe":           &p.SuperFastProbe,
				"heaters_on_during_probing": &p.HeatersOnDuringProbing,
				"probing_steppers_off":      &p.ProbingSteppersOff,
				"slower_probe_moves":        &p.SlowerProbeMoves,
				"extrapolate_beyond_grid":   &p.ExtrapolateBeyondGrid,
				"bltouch":                   &p.BLTouch,
				"bltouch_on_5pin":           &p.BLTouchOn5Pin,
			}),
		}
		pin, err := sec.GetPinOptional("servo_pin", config.PinOptions{})
		errs = append(errs, err)
		if pin != nil {
			p.ServoPin = pin.Name
		}
		if sec.HasOption("offset") {
			off, err := sec.GetFloatList("offset", ",")
			switch {
			case err != nil:
				errs = append(errs, err)
			case len(off) != 3:
				errs = append(errs, config.ErrInvalidValue(sec.GetName(), "offset",
					fmt.Sprint(off), "three numbers x, y, z"))
			default:
				p.Offset = &Offset{off[0], off[1], off[2]}
			}
		}
		return stderrors.Join(errs...)
	})

	reg.Register("extruder", func(sec *config.Section) error {
		return stderrors.Join(
			getBools(sec, map[string]*bool{
				"custom_esteps": &s.Extruder.CustomESteps,
				"reverse_e":     &s.Extruder.ReverseE,
			}),
			getFloats(sec, map[string]*float64{"esteps": &s.Extruder.ESteps}))
	})

	reg.Register("thermistor", func(sec *config.Section) error {
		t := &s.Thermistors
		errs := []error{
			getEnum(sec, "hotend", &t.Hotend, machine.HotendThermistors(), "stock", "none"),
			getEnum(sec, "bed", &t.Bed, machine.BedThermistors(), "stock", "none"),
			getBools(sec, map[string]*bool{"high_temp": &t.HighTemp}),
			getInts(sec, map[string]*int{"high_temp_limit": &t.HighTempLimit}),
		}
		code, err := sec.GetIntOptional("hotend_code")
		errs = append(errs, err)
		if code != nil {
			t.HotendCode = code
		}
		code, err = sec.GetIntOptional("bed_code")
		errs = append(errs, err)
		if code != nil {
			t.BedCode = code
		}
		return stderrors.Join(errs...)
	})

	reg.Register("misc", func(sec *config.Section) error {
		return getBools(sec, map[string]*bool{
			"reverse_knob":         &s.Misc.ReverseKnob,
			"fan_fix":              &s.Misc.FanFix,
			"slower_homing":        &s.Misc.SlowerHoming,
			"reverse_x":            &s.Misc.ReverseX,
			"reverse_y":            &s.Misc.ReverseY,
			"reverse_z":            &s.Misc.ReverseZ,
			"pid_bed":              &s.PIDBed,
			"fine_babystepping":    &s.FineBabystepping,
			"manual_mesh_leveling": &s.ManualMesh,
		})
	})

	reg.Register("input_shaping", func(sec *config.Section) error {
		is := &s.InputShaping
		return stderrors.Join(
			getBools(sec, map[string]*bool{"enabled": &is.Enabled}),
			getShaping(sec, "freq_x", &is.FreqX, freqBounds),
			getShaping(sec, "damping_x", &is.DampingX, dampingBounds),
			getShaping(sec, "freq_y", &is.FreqY, freqBounds),
			getShaping(sec, "damping_y", &is.DampingY, dampingBounds))
	})

	reg.Register("bed", func(sec *config.Section) error {
		return stderrors.Join(
			getCount(sec, "x", &s.CustomBed.X),
			getCount(sec, "y", &s.CustomBed.Y),
			getCount(sec, "z", &s.CustomBed.Z))
	})

	reg.Register("home_adjust", func(sec *config.Section) error {
		return stderrors.Join(
			getBools(sec, map[string]*bool{"enabled": &s.HomeAdjust.Enabled}),
			getFloats(sec, map[string]*float64{"x": &s.HomeAdjust.X, "y": &s.HomeAdjust.Y}))
	})

	reg.Register("linear_advance", func(sec *config.Section) error {
		return stderrors.Join(
			getBools(sec, map[string]*bool{"enabled": &s.LinearAdvance.Enabled}),
			getFloats(sec, map[string]*float64{"k": &s.LinearAdvance.K}))
	})

	reg.Register("skew", func(sec *config.Section) error {
		sk := &s.Skew
		return stderrors.Join(
			getBools(sec, map[string]*bool{"enabled": &sk.Enabled, "for_z": &sk.ForZ, "gcode": &sk.Gcode}),
			getFloats(sec, map[string]*float64{
				"xy_diag_ac": &sk.XYDiagAC, "xy_diag_bd": &sk.XYDiagBD, "xy_side_ad": &sk.XYSideAD,
				"xz_diag_ac": &sk.XZDiagAC, "xz_diag_bd": &sk.XZDiagBD,
				"yz_diag_ac": &sk.YZDiagAC, "yz_diag_bd": &sk.YZDiagBD, "yz_side_ad": &sk.YZSideAD,
			}),
			getFloatPtr(sec, "xy_factor", &sk.XYFactor),
			getFloatPtr(sec, "xz_factor", &sk.XZFactor),
			getFloatPtr(sec, "yz_factor", &sk.YZFactor))
	})
}

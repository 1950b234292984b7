package selection

import (
	"strconv"
	"strings"

	"ufwcfg/pkg/config"
)

// Document renders the selection in the INI dialect read by LoadINI.
// Disabled toggles and unset optional values are left out; numeric values
// are always written so the file documents what will be used.
func (s Selection) Document() *config.Document {
	doc := config.NewDocument("TH3D UFW configuration selection")

	pr := doc.Section("printer")
	models := make([]string, len(s.Printers))
	for i, p := range s.Printers {
		models[i] = string(p)
	}
	pr.Set("model", strings.Join(models, ", "))
	setString(pr, "name", s.Misc.PrinterName)
	setString(pr, "xtender_kit", string(s.XtenderKit))
	setString(pr, "ender5_plus_abl", string(s.Ender5PlusABL))
	setBool(pr, "e3mini_v3_f4cpu", s.E3MiniV3F4CPU)
	setBool(pr, "ender5_new_leadscrew", s.Ender5NewLeadscrew)
	setBool(pr, "ezneo_220", s.EZNeo220)
	setBool(pr, "faster_baudrate", s.FasterBaudrate)
	setBool(pr, "btt_touch_screen", s.BTTTouchScreen)
	setBool(pr, "sdcard_eeprom_emulation", s.SDCardEEPROM)
	setBool(pr, "no_sdcard", s.NoSDCard)
	setBool(pr, "power_loss_recovery", s.PowerLossRecovery)
	setBool(pr, "disable_arc_support", s.DisableArcSupport)

	fs := doc.Section("filament")
	setString(fs, "sensor", string(s.FilamentSensor))
	fs.Set("btt_sfs_distance_mm", FormatFloat(s.BttSfsDistanceMM))
	setBool(fs, "mounted_sensor", s.Unload.MountedFilamentSensor)
	setBool(fs, "direct_drive", s.Unload.DirectDrive)

	p := s.Probe
	ps := doc.Section("probe").Comment("offset is nozzle to sensor x, y, z in mm")
	setString(ps, "mount", string(s.ProbeMount))
	setBool(ps, "ezabl_on_servo_header", s.EZABLOnServoHeader)
	ps.Set("points", strconv.Itoa(p.Points))
	ps.Set("edge", strconv.Itoa(p.Edge))
	ps.Set("leveling", string(p.Leveling))
	setBool(ps, "fast_probe", p.FastProbe)
	setBool(ps, "superfast_probe", p.SuperFastProbe)
	setBool(ps, "heaters_on_during_probing", p.HeatersOnDuringProbing)
	setBool(ps, "probing_steppers_off", p.ProbingSteppersOff)
	setBool(ps, "slower_probe_moves", p.SlowerProbeMoves)
	setBool(ps, "extrapolate_beyond_grid", p.ExtrapolateBeyondGrid)
	setBool(ps, "bltouch", p.BLTouch)
	setBool(ps, "bltouch_on_5pin", p.BLTouchOn5Pin)
	setString(ps, "servo_pin", p.ServoPin)
	if p.Offset != nil {
		ps.Set("offset", FormatFloat(p.Offset[0])+", "+FormatFloat(p.Offset[1])+", "+FormatFloat(p.Offset[2]))
	}

	ex := doc.Section("extruder")
	setBool(ex, "custom_esteps", s.Extruder.CustomESteps)
	ex.Set("esteps", FormatFloat(s.Extruder.ESteps))
	setBool(ex, "reverse_e", s.Extruder.ReverseE)

	t := s.Thermistors
	th := doc.Section("thermistor")
	setString(th, "hotend", string(t.Hotend))
	setInt(th, "hotend_code", t.HotendCode)
	setString(th, "bed", string(t.Bed))
	setInt(th, "bed_code", t.BedCode)
	setBool(th, "high_temp", t.HighTemp)
	if t.HighTempLimit != 0 {
		th.Set("high_temp_limit", strconv.Itoa(t.HighTempLimit))
	}

	misc := doc.Section("misc")
	setBool(misc, "reverse_knob", s.Misc.ReverseKnob)
	setBool(misc, "fan_fix", s.Misc.FanFix)
	setBool(misc, "slower_homing", s.Misc.SlowerHoming)
	setBool(misc, "reverse_x", s.Misc.ReverseX)
	setBool(misc, "reverse_y", s.Misc.ReverseY)
	setBool(misc, "reverse_z", s.Misc.ReverseZ)
	setBool(misc, "pid_bed", s.PIDBed)
	setBool(misc, "fine_babystepping", s.FineBabystepping)
	setBool(misc, "manual_mesh_leveling", s.ManualMesh)

	is := doc.Section("input_shaping").Comment("freq in Hz, damping ratio from 0 to 1")
	setBool(is, "enabled", s.InputShaping.Enabled)
	is.Set("freq_x", FormatFloat(s.InputShaping.FreqX))
	is.Set("damping_x", FormatFloat(s.InputShaping.DampingX))
	is.Set("freq_y", FormatFloat(s.InputShaping.FreqY))
	is.Set("damping_y", FormatFloat(s.InputShaping.DampingY))

	if s.CustomBed != (BedSize{}) {
		bed := doc.Section("bed").Comment("replaces the model bed size, mm")
		bed.Set("x", strconv.Itoa(s.CustomBed.X))
		bed.Set("y", strconv.Itoa(s.CustomBed.Y))
		bed.Set("z", strconv.Itoa(s.CustomBed.Z))
	}

	ha := doc.Section("home_adjust")
	setBool(ha, "enabled", s.HomeAdjust.Enabled)
	ha.Set("x", FormatFloat(s.HomeAdjust.X))
	ha.Set("y", FormatFloat(s.HomeAdjust.Y))

	la := doc.Section("linear_advance")
	setBool(la, "enabled", s.LinearAdvance.Enabled)
	la.Set("k", FormatFloat(s.LinearAdvance.K))

	sk := s.Skew
	ss := doc.Section("skew").Comment("calibration print lengths in mm; a *_factor wins over its lengths")
	setBool(ss, "enabled", sk.Enabled)
	setBool(ss, "for_z", sk.ForZ)
	setBool(ss, "gcode", sk.Gcode)
	ss.Set("xy_diag_ac", FormatFloat(sk.XYDiagAC))
	ss.Set("xy_diag_bd", FormatFloat(sk.XYDiagBD))
	ss.Set("xy_side_ad", FormatFloat(sk.XYSideAD))
	ss.Set("xz_diag_ac", FormatFloat(sk.XZDiagAC))
	ss.Set("xz_diag_bd", FormatFloat(sk.XZDiagBD))
	ss.Set("yz_diag_ac", FormatFloat(sk.YZDiagAC))
	ss.Set("yz_diag_bd", FormatFloat(sk.YZDiagBD))
	ss.Set("yz_side_ad", FormatFloat(sk.YZSideAD))
	setFloat(ss, "xy_factor", sk.XYFactor)
	setFloat(ss, "xz_factor", sk.XZFactor)
	setFloat(ss, "yz_factor", sk.YZFactor)

	return doc
}

// SaveINI writes the selection atomically, keeping a timestamped backup of
// any file it replaces.
func (s Selection) SaveINI(path string) error {
	return s.Document().Save(path, config.SaveOptions{Backup: true})
}

func setBool(ds *config.DocSection, key string, v bool) {
	if v {
		ds.Set(key, "true")
	}
}

func setString(ds *config.DocSection, key, v string) {
	if v != "" {
		ds.Set(key, v)
	}
}

func setInt(ds *config.DocSection, key string, v *int) {
	if v != nil {
		ds.Set(key, strconv.Itoa(*v))
	}
}

func setFloat(ds *config.DocSection, key string, v *float64) {
	if v != nil {
		ds.Set(key, FormatFloat(*v))
	}
}

// Package resolve derives the firmware's constant bundle from a validated
// selection. Resolution is pure: the same selection always yields the same
// Constants.
package resolve

import (
	"slices"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/inputshaper"
	"ufwcfg/pkg/log"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/selection"
	"ufwcfg/pkg/skew"
)

// StockProbeOffset is the nozzle-to-probe offset of the Ender 5 Plus stock
// BLTouch mount.
var StockProbeOffset = selection.Offset{-44, -9, 0}

// Unload lengths in mm for the filament change sequence.
const (
	UnloadMountedSensor = 5
	UnloadDirectDrive   = 20
	UnloadBowden        = 100
)

var logger = log.GetLogger("resolve")

// Resolve validates sel and derives the constants in the order the
// firmware's configuration backend does.
func Resolve(sel selection.Selection) (*Constants, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	p := sel.Printer()
	c := &Constants{
		Printer:     p,
		Family:      p.Family(),
		SerialPort:  SerialPort,
		SerialPort2: SerialPort2,
		Extruders:   1,
		HotendPID:   HotendPID,
		BedPID:      BedPID,
		ProbePoints: sel.Probe.Points,
		ProbeEdge:   sel.Probe.Edge,
		Leveling:    sel.Probe.Leveling,
		BLTouch:     sel.Probe.BLTouch,
		EZNeo:       sel.EZNeo220,
		Warnings:    sel.Warnings(),
	}
	derive := func(flag string) {
		if !slices.Contains(c.Derived, flag) {
			c.Derived = append(c.Derived, flag)
		}
	}

	c.CustomProbe = sel.CustomProbe()
	if sel.Probe.BLTouch && sel.ProbeMount != machine.MountCustom {
		derive(string(machine.MountCustom))
	}
	if c.Family != p {
		derive(string(c.Family))
	}
	if sel.Probe.Offset != nil {
		off := *sel.Probe.Offset
		c.ProbeOffset = &off
	}

	resolveBoard(sel, c)
	resolveMotion(sel, c)
	resolveGeometry(sel, c, derive)
	resolveThermal(sel, c)

	if p == machine.Ender5Plus {
		if sel.Ender5PlusABL == machine.E5PlusStockBLTouch {
			if !c.BLTouch {
				c.BLTouch = true
				derive("BLTOUCH")
			}
			if !c.CustomProbe {
				c.CustomProbe = true
				derive(string(machine.MountCustom))
				off := StockProbeOffset
				c.ProbeOffset = &off
				c.StockProbeOffset = true
			}
		}
		c.ABLEnable = sel.Ender5PlusABL != machine.E5PlusNoABL
	}
	if sel.ProbeMount != "" {
		c.ABLEnable = true
	}

	resolveFilament(sel, c)

	if sel.InputShaping.Enabled {
		sh, err := resolveShaping(sel.InputShaping)
		if err != nil {
			return nil, err
		}
		c.Shaping = sh
	}
	if sel.Skew.Enabled {
		c.Skew = resolveSkew(sel.Skew)
	}

	logger.WithFields(log.Fields{
		"printer":  string(p),
		"baudrate": c.Baudrate,
		"bed":      c.Bed,
		"derived":  c.Derived,
	}).Debug("resolved")
	for _, w := range c.Warnings {
		logger.Warn("%s", w)
	}
	return c, nil
}

func resolveBoard(sel selection.Selection, c *Constants) {
	c.Voltage = 24
	if c.Printer.TwelveVolt() {
		c.Voltage = 12
	}
	c.Baudrate = BaudrateDefault
	if sel.FasterBaudrate {
		c.Baudrate = BaudrateFast
	}
	c.Motherboard = Motherboard
	if sel.E3MiniV3F4CPU {
		c.Motherboard = MotherboardF4CPU
	}
	// The Plus ships with its knob wired the other way round.
	c.ReverseEncoder = sel.Misc.ReverseKnob != (c.Printer == machine.Ender5Plus)
}

func resolveMotion(sel selection.Selection, c *Constants) {
	c.ZSteps = ZStepsStock
	if sel.Ender5NewLeadscrew || c.Printer == machine.Ender5Plus {
		c.ZSteps = ZStepsLeadscrew
	}
	e := StockESteps
	if sel.Extruder.CustomESteps {
		e = sel.Extruder.ESteps
	}
	c.StepsPerUnit = [4]float64{XYStepsPerUnit, XYStepsPerUnit, float64(c.ZSteps), e}

	c.UseProbeForZHoming = sel.Probe.BLTouchOn5Pin || sel.EZABLOnServoHeader

	p := c.Printer
	if p == machine.Ender2Pro {
		c.InvertDir.X = sel.Misc.ReverseX
		c.InvertDir.Y = sel.Misc.ReverseY
		c.InvertDir.E0 = sel.Extruder.ReverseE
	} else {
		c.InvertDir.X = !sel.Misc.ReverseX
		c.InvertDir.Y = !sel.Misc.ReverseY
		c.InvertDir.E0 = !sel.Extruder.ReverseE
	}
	if p.Ender5Layout() || p == machine.Ender2Pro {
		c.InvertDir.Z = !sel.Misc.ReverseZ
	} else {
		c.InvertDir.Z = sel.Misc.ReverseZ
	}
}

func resolveGeometry(sel selection.Selection, c *Constants, derive func(string)) {
	p := c.Printer
	c.Bed, _ = machine.BedVolume(p, sel.XtenderKit)
	if sel.CustomBed.X > 0 {
		c.Bed.X = sel.CustomBed.X
	}
	if sel.CustomBed.Y > 0 {
		c.Bed.Y = sel.CustomBed.Y
	}
	if sel.CustomBed.Z > 0 {
		c.Bed.Z = sel.CustomBed.Z
	}
	c.DualZ = p.DualZ()
	c.SlowerProbeMoves = sel.Probe.SlowerProbeMoves
	if p.LargeBed() && !c.SlowerProbeMoves {
		c.SlowerProbeMoves = true
		derive("SLOWER_PROBE_MOVES")
	}

	switch {
	case sel.HomeAdjust.Enabled:
		c.XMinPos, c.YMinPos = sel.HomeAdjust.X, sel.HomeAdjust.Y
	case sel.ProbeMount == machine.MountEnder2ProOem || sel.ProbeMount == machine.MountEnder2ProOemMicr:
		c.XMinPos, c.YMinPos = -9, -4
	case p == machine.Ender2Pro:
		c.XMinPos, c.YMinPos = -20, -4
	}

	if p.Ender5Layout() {
		c.Plugs = []string{"XMAX", "YMAX", "ZMIN"}
		c.HomeDir = HomeDir{X: 1, Y: 1, Z: -1}
	} else {
		c.Plugs = []string{"XMIN", "YMIN", "ZMIN"}
		c.HomeDir = HomeDir{X: -1, Y: -1, Z: -1}
	}
}

func resolveThermal(sel selection.Selection, c *Constants) {
	t := sel.Thermistors
	switch t.Hotend {
	case machine.HotendV6:
		c.TempSensor0 = 5
	case machine.HotendKnown:
		c.TempSensor0 = *t.HotendCode
	default:
		c.TempSensor0 = 1
	}
	switch t.Bed {
	case machine.BedACBed:
		c.TempSensorBed = 0
	case machine.BedKnown:
		c.TempSensorBed = *t.BedCode
	case machine.BedKeenovo:
		c.TempSensorBed = 11
	default:
		c.TempSensorBed = 1
	}
}

func resolveFilament(sel selection.Selection, c *Constants) {
	switch {
	case sel.Unload.MountedFilamentSensor:
		c.UnloadLength = UnloadMountedSensor
	case sel.Unload.DirectDrive:
		c.UnloadLength = UnloadDirectDrive
	default:
		c.UnloadLength = UnloadBowden
	}
	if sel.FilamentSensor == "" {
		return
	}
	f := &Filament{Sensor: sel.FilamentSensor, RunoutState: "HIGH"}
	if sel.FilamentSensor.ActiveLow() {
		f.RunoutState = "LOW"
	}
	if sel.FilamentSensor == machine.SensorBTTSFS {
		f.DistanceMM = sel.BttSfsDistanceMM
		f.MotionSensor = true
	}
	c.Filament = f
}

func resolveShaping(is selection.InputShaping) (*Shaping, error) {
	x, err := inputshaper.New(inputshaper.ShaperZV, is.FreqX, is.DampingX)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSelectionRange, err.Error()).SetMacro("INPUT_SHAPING_X")
	}
	y, err := inputshaper.New(inputshaper.ShaperZV, is.FreqY, is.DampingY)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSelectionRange, err.Error()).SetMacro("INPUT_SHAPING_Y")
	}
	return &Shaping{X: x, Y: y}, nil
}

func resolveSkew(sk selection.Skew) *Skew {
	out := &Skew{ForZ: sk.ForZ}
	pick := func(plane string, factor *float64, m skew.Measurement) float64 {
		if factor != nil {
			return *factor
		}
		out.Computed = append(out.Computed, plane)
		return m.Factor()
	}
	out.Factors.XY = pick("XY", sk.XYFactor, skew.Measurement{AC: sk.XYDiagAC, BD: sk.XYDiagBD, AD: sk.XYSideAD})
	if sk.ForZ {
		out.Factors.XZ = pick("XZ", sk.XZFactor, skew.Measurement{AC: sk.XZDiagAC, BD: sk.XZDiagBD, AD: sk.XYSideAD})
		out.Factors.YZ = pick("YZ", sk.YZFactor, skew.Measurement{AC: sk.YZDiagAC, BD: sk.YZDiagBD, AD: sk.YZSideAD})
	}
	return out
}

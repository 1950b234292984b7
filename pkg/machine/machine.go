// Package machine holds the fixed vocabulary of the SKR E3 Mini V3 firmware
// build: supported printer models, extension kits, probe mounts, sensors and
// the geometry table each model selects.
package machine

import (
	"strings"

	"ufwcfg/pkg/errors"
)

// Printer is a supported printer model, named by its firmware macro.
type Printer string

const (
	Ender2Pro  Printer = "ENDER2_PRO"
	Ender3     Printer = "ENDER3"
	Ender3Pro  Printer = "ENDER3_PRO"
	Ender3Max  Printer = "ENDER3_MAX"
	Ender5     Printer = "ENDER5"
	Ender5Pro  Printer = "ENDER5_PRO"
	Ender5Plus Printer = "ENDER5_PLUS"
	CR10       Printer = "CR10"
	CR10Mini   Printer = "CR10_MINI"
	CR10S4     Printer = "CR10_S4"
	CR10S5     Printer = "CR10_S5"
)

// Printers returns every supported model in header order.
func Printers() []Printer {
	return []Printer{
		Ender2Pro, Ender3, Ender3Pro, Ender3Max, Ender5, Ender5Pro, Ender5Plus,
		CR10, CR10Mini, CR10S4, CR10S5,
	}
}

// ParsePrinter parses a model macro name, case-insensitively.
func ParsePrinter(s string) (Printer, error) {
	return parseChoice("printer", s, Printers())
}

// Family folds the Pro variants onto the base model they share settings with.
func (p Printer) Family() Printer {
	switch p {
	case Ender3Pro:
		return Ender3
	case Ender5Pro:
		return Ender5
	}
	return p
}

// Ender5Layout reports whether the model homes to X/Y max like the Ender 5 line.
func (p Printer) Ender5Layout() bool {
	f := p.Family()
	return f == Ender5 || f == Ender5Plus
}

// TwelveVolt reports whether the model ships with a 12V power supply.
func (p Printer) TwelveVolt() bool {
	switch p {
	case CR10, CR10Mini, CR10S4, CR10S5:
		return true
	}
	return false
}

// DualZ reports whether the model drives Z with two motors.
func (p Printer) DualZ() bool {
	switch p {
	case CR10, CR10S4, CR10S5:
		return true
	}
	return false
}

// LargeBed reports models whose bed size forces slower moves between probe points.
func (p Printer) LargeBed() bool {
	return p == CR10S4 || p == CR10S5
}

// Volume is a printable volume in millimetres.
type Volume struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

var baseVolumes = map[Printer]Volume{
	Ender2Pro:  {165, 168, 180},
	Ender3:     {235, 235, 250},
	Ender3Max:  {300, 300, 340},
	Ender5:     {220, 220, 300},
	Ender5Plus: {360, 360, 410},
	CR10:       {300, 300, 400},
	CR10Mini:   {300, 220, 300},
	CR10S4:     {400, 400, 400},
	CR10S5:     {500, 500, 500},
}

// XtenderKit is an Ender Xtender frame extension kit.
type XtenderKit string

const (
	XtenderE3300   XtenderKit = "XTENDER_E3_300"
	XtenderE3300XL XtenderKit = "XTENDER_E3_300XL"
	XtenderE3400   XtenderKit = "XTENDER_E3_400"
	XtenderE3400Z  XtenderKit = "XTENDER_E3_400Z"
	XtenderE3400XL XtenderKit = "XTENDER_E3_400XL"
	XtenderE3500Z  XtenderKit = "XTENDER_E3_500Z"
	XtenderE55XL   XtenderKit = "XTENDER_E5_5XL"
	XtenderE5P400  XtenderKit = "XTENDER_E5P_400"
	XtenderE5P500  XtenderKit = "XTENDER_E5P_500"
)

type kitSpec struct {
	family Printer
	volume Volume
}

var kits = map[XtenderKit]kitSpec{
	XtenderE3300:   {Ender3, Volume{300, 300, 250}},
	XtenderE3300XL: {Ender3, Volume{300, 300, 400}},
	XtenderE3400:   {Ender3, Volume{400, 400, 250}},
	XtenderE3400Z:  {Ender3, Volume{235, 235, 400}},
	XtenderE3400XL: {Ender3, Volume{400, 400, 500}},
	XtenderE3500Z:  {Ender3, Volume{235, 235, 500}},
	XtenderE55XL:   {Ender5, Volume{235, 235, 500}},
	XtenderE5P400:  {Ender5Plus, Volume{510, 510, 400}},
	XtenderE5P500:  {Ender5Plus, Volume{510, 510, 500}},
}

// XtenderKits returns every kit in header order.
func XtenderKits() []XtenderKit {
	return []XtenderKit{
		XtenderE3300, XtenderE3300XL, XtenderE3400, XtenderE3400Z, XtenderE3400XL,
		XtenderE3500Z, XtenderE55XL, XtenderE5P400, XtenderE5P500,
	}
}

// ParseXtenderKit parses a kit macro name; "" and "none" mean no kit.
func ParseXtenderKit(s string) (XtenderKit, error) {
	return parseOptional("xtender_kit", s, XtenderKits())
}

// Family returns the model family the kit is built for.
func (k XtenderKit) Family() Printer {
	return kits[k].family
}

// Fits reports whether the kit can be installed on printer p.
func (k XtenderKit) Fits(p Printer) bool {
	if k == "" {
		return true
	}
	spec, ok := kits[k]
	return ok && spec.family == p.Family()
}

// BedVolume returns the printable volume of p with the given kit installed.
// A kit that does not fit the model is ignored, matching the firmware's
// behaviour of only reading kit flags inside the matching model block.
func BedVolume(p Printer, kit XtenderKit) (Volume, bool) {
	v, ok := baseVolumes[p.Family()]
	if !ok {
		return Volume{}, false
	}
	if spec, ok := kits[kit]; ok && spec.family == p.Family() {
		return spec.volume, true
	}
	return v, true
}

// ProbeMount is an EZABL mount preset, or CUSTOM_PROBE for user offsets.
type ProbeMount string

const (
	MountCR10Oem          ProbeMount = "CR10_OEM"
	MountEnder2ProOem     ProbeMount = "ENDER2_PRO_OEM"
	MountEnder2ProOemMicr ProbeMount = "ENDER2_PRO_OEM_MICRO"
	MountEnder3Oem        ProbeMount = "ENDER3_OEM"
	MountEnder3V2Oem      ProbeMount = "ENDER3_V2_OEM"
	MountEnder3MaxOem     ProbeMount = "ENDER3_MAX_OEM"
	MountEnder5Oem        ProbeMount = "ENDER5_OEM"
	MountEnder5PlusOem    ProbeMount = "ENDER5_PLUS_OEM"
	MountSprite18mm       ProbeMount = "SPRITE_EXTRUDER_18MM_MOUNT"
	MountCustom           ProbeMount = "CUSTOM_PROBE"
)

// ProbeMounts returns every mount in header order.
func ProbeMounts() []ProbeMount {
	return []ProbeMount{
		MountCR10Oem, MountEnder2ProOem, MountEnder2ProOemMicr, MountEnder3Oem,
		MountEnder3V2Oem, MountEnder3MaxOem, MountEnder5Oem, MountEnder5PlusOem,
		MountSprite18mm, MountCustom,
	}
}

// ParseProbeMount parses a mount macro name; "" and "none" mean no probe.
func ParseProbeMount(s string) (ProbeMount, error) {
	return parseOptional("probe_mount", s, ProbeMounts())
}

// FilamentSensor is a runout sensor wired to the E-Stop port.
type FilamentSensor string

const (
	SensorEZOut      FilamentSensor = "EZOUT_ENABLE"
	SensorCR10SStock FilamentSensor = "CR10S_STOCKFILAMENTSENSOR"
	SensorBTTSFS     FilamentSensor = "BTT_SFS_FILAMENT_SENSOR"
)

// FilamentSensors returns every sensor in header order.
func FilamentSensors() []FilamentSensor {
	return []FilamentSensor{SensorEZOut, SensorCR10SStock, SensorBTTSFS}
}

// ParseFilamentSensor parses a sensor macro name; "" and "none" mean no sensor.
func ParseFilamentSensor(s string) (FilamentSensor, error) {
	return parseOptional("filament_sensor", s, FilamentSensors())
}

// ActiveLow reports whether the sensor pulls the pin LOW when filament is absent.
func (f FilamentSensor) ActiveLow() bool {
	return f == SensorEZOut || f == SensorBTTSFS
}

// HotendThermistor selects the hotend sensor source. The zero value is the stock sensor.
type HotendThermistor string

const (
	HotendStock HotendThermistor = ""
	HotendV6    HotendThermistor = "V6_HOTEND"
	HotendTH3D  HotendThermistor = "TH3D_HOTEND_THERMISTOR"
	HotendKnown HotendThermistor = "KNOWN_HOTEND_THERMISTOR"
)

// HotendThermistors lists the non-stock choices in the firmware's precedence order.
func HotendThermistors() []HotendThermistor {
	return []HotendThermistor{HotendV6, HotendKnown, HotendTH3D}
}

// ParseHotendThermistor parses a hotend sensor macro name; "" and "stock" select the stock sensor.
func ParseHotendThermistor(s string) (HotendThermistor, error) {
	if strings.EqualFold(strings.TrimSpace(s), "stock") {
		return HotendStock, nil
	}
	return parseOptional("hotend_thermistor", s, HotendThermistors())
}

// BedThermistor selects the bed sensor source. The zero value is the stock sensor.
type BedThermistor string

const (
	BedStock   BedThermistor = ""
	BedACBed   BedThermistor = "AC_BED"
	BedKnown   BedThermistor = "KNOWN_BED_THERMISTOR"
	BedTH3D    BedThermistor = "TH3D_BED_THERMISTOR"
	BedKeenovo BedThermistor = "KEENOVO_TEMPSENSOR"
)

// BedThermistors lists the non-stock choices in the firmware's precedence order.
func BedThermistors() []BedThermistor {
	return []BedThermistor{BedACBed, BedKnown, BedTH3D, BedKeenovo}
}

// ParseBedThermistor parses a bed sensor macro name; "" and "stock" select the stock sensor.
func ParseBedThermistor(s string) (BedThermistor, error) {
	if strings.EqualFold(strings.TrimSpace(s), "stock") {
		return BedStock, nil
	}
	return parseOptional("bed_thermistor", s, BedThermistors())
}

// E5PlusABL selects the Ender 5 Plus leveling hardware. The zero value is the stock BLTouch.
type E5PlusABL string

const (
	E5PlusStockBLTouch E5PlusABL = ""
	E5PlusEZABL        E5PlusABL = "ENDER5_PLUS_EZABL"
	E5PlusNoABL        E5PlusABL = "ENDER5_PLUS_NOABL"
)

// ParseE5PlusABL parses the Ender 5 Plus leveling choice; "" and "stock" select the BLTouch.
func ParseE5PlusABL(s string) (E5PlusABL, error) {
	if strings.EqualFold(strings.TrimSpace(s), "stock") {
		return E5PlusStockBLTouch, nil
	}
	return parseOptional("ender5_plus_abl", s, E5PlusABLs())
}

// E5PlusABLs returns the non-stock Ender 5 Plus leveling choices.
func E5PlusABLs() []E5PlusABL {
	return []E5PlusABL{E5PlusEZABL, E5PlusNoABL}
}

// BedLeveling selects the mesh leveling algorithm.
type BedLeveling string

const (
	LevelingBilinear BedLeveling = "ABL_BILINEAR"
	LevelingUBL      BedLeveling = "ABL_UBL"
)

// ParseBedLeveling parses a leveling algorithm name; "" selects bilinear.
func ParseBedLeveling(s string) (BedLeveling, error) {
	if strings.TrimSpace(s) == "" {
		return LevelingBilinear, nil
	}
	return parseChoice("bed_leveling", s, BedLevelings())
}

// BedLevelings returns the supported mesh leveling algorithms.
func BedLevelings() []BedLeveling {
	return []BedLeveling{LevelingBilinear, LevelingUBL}
}

func parseChoice[T ~string](kind, s string, all []T) (T, error) {
	v := strings.TrimSpace(s)
	for _, c := range all {
		if strings.EqualFold(v, string(c)) {
			return c, nil
		}
	}
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	var zero T
	return zero, errors.UnknownError(kind, s, names)
}

func parseOptional[T ~string](kind, s string, all []T) (T, error) {
	v := strings.TrimSpace(s)
	if v == "" || strings.EqualFold(v, "none") {
		var zero T
		return zero, nil
	}
	return parseChoice(kind, v, all)
}

// Package thermistor maps firmware temperature sensor codes to the sensor
// they describe.
package thermistor

import (
	"fmt"
	"sort"
)

// StockHotendLimit is the highest temperature a PTFE-lined stock hotend tolerates.
const StockHotendLimit = 290

// Sensor is one entry of the firmware's sensor table.
type Sensor struct {
	Code    int
	Name    string
	MaxTemp int // rated maximum in °C, 0 for "not used"
}

var table = map[int]Sensor{
	0:    {0, "not used", 0},
	1:    {1, "100k EPCOS", 300},
	2:    {2, "200k ATC Semitec 204GT-2", 300},
	3:    {3, "Mendel-parts 100k", 300},
	4:    {4, "10k generic", 300},
	5:    {5, "100k ATC Semitec 104GT-2 / 104NT-4", 300},
	11:   {11, "100k Keenovo 3950", 300},
	13:   {13, "100k Hisens 3950", 300},
	20:   {20, "PT100 with INA826 amplifier", 350},
	61:   {61, "100k Formbot / Vivedino 3950 350C", 350},
	66:   {66, "4.7M Dyze Design High Temperature", 500},
	67:   {67, "500k SliceEngineering 450C", 450},
	147:  {147, "PT100 with 4.7k pullup", 500},
	1047: {1047, "PT1000 with 4.7k pullup", 500},
}

// Lookup returns the sensor for a code.
func Lookup(code int) (Sensor, bool) {
	s, ok := table[code]
	return s, ok
}

// Codes lists the known codes in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(table))
	for c := range table {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// Validate rejects unknown codes. allowUnused permits code 0, which only
// makes sense for a bed without a sensor.
func Validate(code int, allowUnused bool) error {
	if code == 0 && !allowUnused {
		return fmt.Errorf("sensor code 0 disables temperature reading")
	}
	if _, ok := table[code]; !ok {
		return fmt.Errorf("unknown sensor code %d (known: %v)", code, Codes())
	}
	return nil
}

// HighTempWarning returns a non-empty message when limit is unsafe for the
// hotend sensor with the given code.
func HighTempWarning(code, limit int) string {
	s, ok := table[code]
	if ok && s.MaxTemp > 0 && limit > s.MaxTemp {
		return fmt.Sprintf("max temp %d°C exceeds the %d°C rating of sensor %d (%s)", limit, s.MaxTemp, code, s.Name)
	}
	if limit > StockHotendLimit {
		return fmt.Sprintf("max temp %d°C is above %d°C and needs an all-metal hotend", limit, StockHotendLimit)
	}
	return ""
}

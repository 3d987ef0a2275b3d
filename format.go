package tryalloc

import (
	"math"
	"strconv"
)

var binaryUnits = [...]string{
	"byte", "kibibyte", "mebibyte", "gibibyte", "tebibyte", "pebibyte", "exbibyte",
}

// formatBinarySize renders a byte count using binary-prefixed units chosen by
// magnitude: "4 bytes", "2.44 kibibytes", "1 kibibyte". Values are rounded to at most
// two decimal places with trailing zeros dropped, and the unit is singular when the
// rounded value is exactly one.
func formatBinarySize(size int) string {
	if size < 1024 {
		unit := "bytes"
		if size == 1 {
			unit = "byte"
		}
		return strconv.Itoa(size) + " " + unit
	}

	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(binaryUnits)-1 {
		value /= 1024
		unit++
	}

	value = math.Round(value*100) / 100
	if value >= 1024 && unit < len(binaryUnits)-1 {
		// Rounding can carry the value into the next unit
		value = 1
		unit++
	}

	name := binaryUnits[unit]
	if value != 1 {
		name += "s"
	}
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + name
}

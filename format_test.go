package tryalloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var formatSizeCases = map[string]struct {
	Size     int
	Expected string
}{
	"Zero Bytes":             {Size: 0, Expected: "0 bytes"},
	"One Byte":               {Size: 1, Expected: "1 byte"},
	"Small":                  {Size: 4, Expected: "4 bytes"},
	"Largest Byte Count":     {Size: 1023, Expected: "1023 bytes"},
	"One Kibibyte":           {Size: 1024, Expected: "1 kibibyte"},
	"Two Kibibytes":          {Size: 2048, Expected: "2 kibibytes"},
	"Rounded Kibibytes":      {Size: 2500, Expected: "2.44 kibibytes"},
	"Half Kibibyte Fraction": {Size: 1536, Expected: "1.5 kibibytes"},
	"One Mebibyte":           {Size: 1 << 20, Expected: "1 mebibyte"},
	"Fractional Mebibytes":   {Size: 2621440, Expected: "2.5 mebibytes"},
	"One Gibibyte":           {Size: 1 << 30, Expected: "1 gibibyte"},
	"One Tebibyte":           {Size: 1 << 40, Expected: "1 tebibyte"},
	"Just Below Unit Carry":  {Size: 1048570, Expected: "1023.99 kibibytes"},
	"Rounding Carries Units": {Size: 1048571, Expected: "1 mebibyte"},
}

func TestFormatBinarySize(t *testing.T) {
	for name, testCase := range formatSizeCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, testCase.Expected, formatBinarySize(testCase.Size))
		})
	}
}

// the rendered value must always be below 1024 in its chosen unit
func TestFormatBinarySizeNeverReachesUnitBoundary(t *testing.T) {
	for size := 1020; size < 1030; size++ {
		rendered := formatBinarySize(size * 1024)
		require.False(t, strings.HasPrefix(rendered, "1024"), "size %d rendered as %q", size*1024, rendered)
	}
}

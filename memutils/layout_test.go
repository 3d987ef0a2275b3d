package memutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutOfScalar(t *testing.T) {
	layout := LayoutOf[int32]()

	require.Equal(t, 4, layout.Size)
	require.Equal(t, uint(4), layout.Align)
	require.NoError(t, layout.Validate())
}

func TestLayoutOfZeroSized(t *testing.T) {
	layout := LayoutOf[struct{}]()

	require.Equal(t, 0, layout.Size)
	require.Equal(t, uint(1), layout.Align)
	require.NoError(t, layout.Validate())
}

func TestLayoutOfByteArray(t *testing.T) {
	layout := LayoutOf[[2500]uint8]()

	require.Equal(t, 2500, layout.Size)
	require.Equal(t, uint(1), layout.Align)
	require.NoError(t, layout.Validate())
}

func TestLayoutValidateRejectsBadAlign(t *testing.T) {
	layout := Layout{Size: 16, Align: 3}
	require.ErrorIs(t, layout.Validate(), PowerOfTwoError)

	layout = Layout{Size: 16, Align: 0}
	require.ErrorIs(t, layout.Validate(), PowerOfTwoError)
}

var alignUpCases = map[string]struct {
	Value     int
	Alignment uint
	Expected  int
}{
	"Already Aligned": {Value: 64, Alignment: 16, Expected: 64},
	"Rounds Up":       {Value: 65, Alignment: 16, Expected: 80},
	"Align One":       {Value: 37, Alignment: 1, Expected: 37},
	"Zero":            {Value: 0, Alignment: 64, Expected: 0},
}

func TestAlignUp(t *testing.T) {
	for name, testCase := range alignUpCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, testCase.Expected, AlignUp(testCase.Value, testCase.Alignment))
		})
	}
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, CheckPow2(uint(256), "size"))
	require.ErrorIs(t, CheckPow2(uint(255), "size"), PowerOfTwoError)
}

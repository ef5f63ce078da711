package msgs

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
)

var (
	basicReport = &ld2410.Report{
		Type:              ld2410.ReportBasic,
		State:             ld2410.TargetBoth,
		Moving:            ld2410.Target{Distance: 75, Energy: 50},
		Stationary:        ld2410.Target{Distance: 150, Energy: 40},
		DetectionDistance: 150,
	}
	engineeringReport = &ld2410.Report{
		Type:              ld2410.ReportEngineering,
		State:             ld2410.TargetMoving,
		Moving:            ld2410.Target{Distance: 30, Energy: 60},
		DetectionDistance: 57,
		Engineering: &ld2410.EngineeringData{
			MaxMovingGate: 8,
			MaxStaticGate: 6,
			MovingEnergy:  [ld2410.GateCount]uint8{60, 34, 5, 3, 3, 4, 3, 6, 5},
			StaticEnergy:  [ld2410.GateCount]uint8{0, 0, 57, 16, 19, 6, 6, 8, 4},
			Additional:    []byte{0x03, 0x05},
		},
	}
)

func TestReportEncodeDecode(t *testing.T) {
	at := time.Unix(1700000000, 123456789)
	for _, r := range []*ld2410.Report{basicReport, engineeringReport} {
		data, err := EncodeReport(r, at)
		require.NoError(t, err)
		m, err := DecodeReport(data)
		require.NoError(t, err)
		assert.True(t, at.Equal(m.Time()))
		decoded, err := m.Decode()
		require.NoError(t, err)
		assert.Equal(t, r, decoded)
	}
}

func TestReportWireFields(t *testing.T) {
	data, err := proto.Marshal(&Report{Type: 2, State: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x02, 0x18, 0x01}, data)

	m := NewReport(basicReport, time.Unix(0, 0))
	assert.Nil(t, m.Engineering)
	assert.Equal(t, uint32(150), m.StationaryDistance)
	assert.Contains(t, m.String(), "stationary_distance:150")
}

func TestReportDecodeInvalid(t *testing.T) {
	testCases := []struct {
		name string
		msg  *Report
	}{
		{"unknown type", &Report{Type: 7}},
		{"unknown state", &Report{Type: 2, State: 4}},
		{"basic with engineering", &Report{Type: 2, Engineering: &Engineering{}}},
		{"engineering without data", &Report{Type: 1}},
		{"short gates", &Report{Type: 1, Engineering: &Engineering{
			MovingEnergy: make([]byte, 9),
			StaticEnergy: make([]byte, 8),
		}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.msg.Decode()
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}

	_, err := DecodeReport([]byte{0x0A, 0x05})
	assert.Error(t, err)
}

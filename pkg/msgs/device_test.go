package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
)

func TestSensorConfig(t *testing.T) {
	s := NewSensorConfig(ld2410.NewConfiguration())
	assert.Equal(t, 8, s.MaxDistanceGate)
	require.NotNil(t, s.NoOneDuration)
	assert.Equal(t, 5*time.Second, *s.NoOneDuration)
	assert.Equal(t, []int{50, 50, 40, 30, 20, 15, 15, 15, 15}, s.Motion)
	assert.Equal(t, []int{0, 0, 40, 40, 30, 30, 20, 20, 20}, s.Rest)

	c, err := s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, ld2410.NewConfiguration(), c)

	s = &SensorConfig{
		MaxMovingGate: 4,
		NoOneDuration: duration(30 * time.Second),
		Motion:        []int{60, 60, 50},
		Rest:          []int{0, 0, 45},
	}
	c, err = s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, 4, c.MaxMovingGate())
	assert.Equal(t, 8, c.MaxStaticGate())
	assert.Equal(t, 30*time.Second, c.NoOneDuration())
	g, err := c.Gate(2)
	require.NoError(t, err)
	assert.Equal(t, 50, g.MotionSensitivity())
	assert.Equal(t, 45, g.RestSensitivity())
	g, err = c.Gate(3)
	require.NoError(t, err)
	assert.Equal(t, 30, g.MotionSensitivity())
}

func duration(d time.Duration) *time.Duration {
	return &d
}

func TestSensorConfigNoOneDuration(t *testing.T) {
	var s SensorConfig
	require.NoError(t, yaml.Unmarshal([]byte("max-moving-gate: 4\n"), &s))
	assert.Nil(t, s.NoOneDuration)
	c, err := s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.NoOneDuration())
	assert.Equal(t, 4, c.MaxMovingGate())

	s = SensorConfig{}
	require.NoError(t, yaml.Unmarshal([]byte("no-one-duration: 0s\n"), &s))
	require.NotNil(t, s.NoOneDuration)
	c, err = s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), c.NoOneDuration())
}

func TestSensorConfigInvalid(t *testing.T) {
	testCases := []struct {
		name string
		conf SensorConfig
	}{
		{"max gate", SensorConfig{MaxMovingGate: 9}},
		{"no-one duration", SensorConfig{NoOneDuration: duration(100000 * time.Second)}},
		{"motion", SensorConfig{Motion: []int{101}}},
		{"rest on gate 1", SensorConfig{Rest: []int{0, 10}}},
		{"too many gates", SensorConfig{Motion: make([]int, 10)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.conf.Configuration()
			assert.Error(t, err)
		})
	}
}

func TestDeviceInfo(t *testing.T) {
	info := &DeviceInfo{
		Node:            "kitchen",
		Device:          "/dev/ttyUSB0",
		Baud:            256000,
		Firmware:        "V1.07.22062416",
		MAC:             "8f:27:2e:b8:0f:65",
		ProtocolVersion: 1,
		BufferSize:      0x40,
		Sensor:          NewSensorConfig(ld2410.NewConfiguration()),
		StartedAt:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := info.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "no-one-duration: 5s")
	assert.Contains(t, string(data), "motion-sensitivity: [50, 50, 40, 30, 20, 15, 15, 15, 15]")

	decoded, err := DecodeDeviceInfo(data)
	require.NoError(t, err)
	assert.True(t, info.StartedAt.Equal(decoded.StartedAt))
	decoded.StartedAt = info.StartedAt
	assert.Equal(t, info, decoded)

	_, err = DecodeDeviceInfo([]byte("node: [unterminated"))
	assert.Error(t, err)
}

package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
serial:
  device: /dev/ttyAMA0
  baud: 115200
  read-timeout: 50ms
command-timeout: 2s
engineering: true
mqtt: mqtt://broker:1883/home/
node: kitchen
sensor:
  max-moving-gate: 6
  max-static-gate: 5
  no-one-duration: 10s
  motion-sensitivity: [50, 50, 40]
  rest-sensitivity: [0, 0, 40]
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ld2410.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaults(t *testing.T) {
	conf := Defaults()
	assert.Equal(t, DefaultDevice, conf.Serial.Device)
	assert.Equal(t, 256000, conf.Serial.Baud)
	assert.Equal(t, time.Second, conf.CommandTimeout)
	assert.Equal(t, DefaultMQTTURL, conf.MQTT)
	assert.Nil(t, conf.Sensor)
	assert.NoError(t, conf.Validate())
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", conf.Serial.Device)
	assert.Equal(t, 115200, conf.Serial.Baud)
	assert.Equal(t, 50*time.Millisecond, conf.Serial.ReadTimeout)
	assert.Equal(t, 2*time.Second, conf.CommandTimeout)
	assert.True(t, conf.Engineering)
	assert.Equal(t, "kitchen", conf.Node)
	require.NotNil(t, conf.Sensor)
	assert.Equal(t, 6, conf.Sensor.MaxMovingGate)
	require.NotNil(t, conf.Sensor.NoOneDuration)
	assert.Equal(t, 10*time.Second, *conf.Sensor.NoOneDuration)
	assert.NoError(t, conf.Validate())

	// missing keys keep defaults
	conf, err = Load(writeConfig(t, "node: hall\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDevice, conf.Serial.Device)
	assert.Equal(t, time.Second, conf.CommandTimeout)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "serial: [1, 2"))
	assert.Error(t, err)
}

func TestParsePrecedence(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	conf, err := Parse(newFlagSet(), []string{"-config", path, "-baud", "460800", "-node", "hall"},
		envOf(map[string]string{EnvDevice: "/dev/ttyUSB3"}))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", conf.Serial.Device)
	assert.Equal(t, 460800, conf.Serial.Baud)
	assert.Equal(t, 2*time.Second, conf.CommandTimeout)
	assert.Equal(t, "mqtt://broker:1883/home/", conf.MQTT)
	assert.Equal(t, "hall", conf.Node)
	assert.True(t, conf.Engineering)

	conf, err = Parse(newFlagSet(), []string{"-mqtt", "", "-device", "/dev/ttyS0"},
		envOf(map[string]string{EnvConfig: path, EnvMQTT: "mqtt://other/"}))
	require.NoError(t, err)
	assert.Empty(t, conf.MQTT)
	assert.Equal(t, "/dev/ttyS0", conf.Serial.Device)
	assert.Equal(t, "kitchen", conf.Node)
}

func TestParseNodeID(t *testing.T) {
	conf, err := Parse(newFlagSet(), nil, envOf(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, conf.Node)
	assert.Equal(t, DefaultDevice, conf.Serial.Device)

	conf, err = Parse(newFlagSet(), nil, envOf(map[string]string{EnvNode: "porch"}))
	require.NoError(t, err)
	assert.Equal(t, "porch", conf.Node)
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		yaml string
	}{
		{"baud", []string{"-baud", "14400"}, ""},
		{"timeout", []string{"-timeout", "0s"}, ""},
		{"unknown flag", []string{"-bogus"}, ""},
		{"sensor", nil, "sensor:\n  max-moving-gate: 9\n"},
		{"device", []string{"-device", ""}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := tc.args
			if tc.yaml != "" {
				args = append([]string{"-config", writeConfig(t, tc.yaml)}, args...)
			}
			_, err := Parse(newFlagSet(), args, envOf(map[string]string{EnvNode: "n"}))
			assert.Error(t, err)
		})
	}
}

func TestNodeID(t *testing.T) {
	id := NodeID()
	assert.NotEmpty(t, id)
}

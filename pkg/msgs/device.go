package msgs

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
)

// SensorConfig is the YAML form of ld2410.Configuration.
type SensorConfig struct {
	MaxDistanceGate int            `yaml:"max-distance-gate,omitempty"`
	MaxMovingGate   int            `yaml:"max-moving-gate"`
	MaxStaticGate   int            `yaml:"max-static-gate"`
	NoOneDuration   *time.Duration `yaml:"no-one-duration,omitempty"`
	Motion          []int          `yaml:"motion-sensitivity,flow"`
	Rest            []int          `yaml:"rest-sensitivity,flow"`
}

// NewSensorConfig converts a configuration.
func NewSensorConfig(c *ld2410.Configuration) *SensorConfig {
	motion, rest := c.MotionSensitivities(), c.RestSensitivities()
	noOne := c.NoOneDuration()
	return &SensorConfig{
		MaxDistanceGate: c.MaxDistanceGate(),
		MaxMovingGate:   c.MaxMovingGate(),
		MaxStaticGate:   c.MaxStaticGate(),
		NoOneDuration:   &noOne,
		Motion:          motion[:],
		Rest:            rest[:],
	}
}

// Configuration builds a validated configuration. Zero gates, an unset
// no-one duration and gates missing from the sensitivity lists keep the
// factory defaults. An explicit zero no-one duration is applied.
func (s *SensorConfig) Configuration() (*ld2410.Configuration, error) {
	if len(s.Motion) > ld2410.GateCount || len(s.Rest) > ld2410.GateCount {
		return nil, fmt.Errorf("sensitivities of more than %d gates", ld2410.GateCount)
	}
	c := ld2410.NewConfiguration()
	if s.MaxMovingGate != 0 {
		if err := c.SetMaxMovingGate(s.MaxMovingGate); err != nil {
			return nil, err
		}
	}
	if s.MaxStaticGate != 0 {
		if err := c.SetMaxStaticGate(s.MaxStaticGate); err != nil {
			return nil, err
		}
	}
	if s.NoOneDuration != nil {
		if err := c.SetNoOneDuration(*s.NoOneDuration); err != nil {
			return nil, err
		}
	}
	for n := 0; n < ld2410.GateCount; n++ {
		g, _ := c.Gate(n)
		motion, rest := g.MotionSensitivity(), g.RestSensitivity()
		if n < len(s.Motion) {
			motion = s.Motion[n]
		}
		if n < len(s.Rest) {
			rest = s.Rest[n]
		}
		g, err := ld2410.NewGateConfiguration(n, motion, rest)
		if err != nil {
			return nil, err
		}
		c.SetGate(g)
	}
	return c, nil
}

// DeviceInfo describes a sensor node. It is published retained when the
// node starts.
type DeviceInfo struct {
	Node            string        `yaml:"node"`
	Device          string        `yaml:"device"`
	Baud            int           `yaml:"baud"`
	Firmware        string        `yaml:"firmware,omitempty"`
	MAC             string        `yaml:"mac,omitempty"`
	ProtocolVersion uint16        `yaml:"protocol-version,omitempty"`
	BufferSize      uint16        `yaml:"buffer-size,omitempty"`
	Engineering     bool          `yaml:"engineering"`
	Sensor          *SensorConfig `yaml:"sensor,omitempty"`
	StartedAt       time.Time     `yaml:"started-at"`
}

// Encode encodes the DeviceInfo to YAML.
func (d *DeviceInfo) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

// DecodeDeviceInfo decodes YAML into DeviceInfo.
func DecodeDeviceInfo(data []byte) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

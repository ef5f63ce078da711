package ld2410

import (
	"fmt"
	"time"
)

// Gate geometry and setting limits.
const (
	// GateCount is the number of distance gates, 0 to 8.
	GateCount = 9
	// GateWidth is the radial width of a gate in centimeters.
	GateWidth = 75
	// MinMaxGate and MaxMaxGate bound the farthest configurable gate.
	MinMaxGate = 2
	MaxMaxGate = GateCount - 1
	// MaxSensitivity is the largest sensitivity. 100 disables detection in the gate.
	MaxSensitivity = 100
	// MaxNoOneDuration is the longest no-one duration.
	MaxNoOneDuration = 65535 * time.Second

	// restlessGates is the number of nearest gates without rest sensitivity.
	restlessGates = 2
)

// MaxSupportedDistance returns the distance in centimeters covered by gates.
func MaxSupportedDistance(gates int) int {
	return gates * GateWidth
}

func validateGate(gate int) error {
	return validateRange("gate", gate, 0, GateCount-1)
}

func validateMaxGate(field string, gate int) error {
	return validateRange(field, gate, MinMaxGate, MaxMaxGate)
}

func noOneSeconds(d time.Duration) (int, error) {
	secs := int(d / time.Second)
	if d < 0 && d%time.Second != 0 {
		// round toward negative so sub-second negatives stay out of range
		secs--
	}
	if err := validateRange("no-one duration", secs, 0, int(MaxNoOneDuration/time.Second)); err != nil {
		return 0, err
	}
	return secs, nil
}

// GateConfiguration holds the sensitivities of one gate.
// The zero value is gate 0 with both sensitivities 0.
type GateConfiguration struct {
	gate   int
	motion int
	rest   int
}

// NewGateConfiguration creates a validated gate configuration.
// Gates 0 and 1 have no rest sensitivity, rest must be 0 for them.
func NewGateConfiguration(gate, motion, rest int) (GateConfiguration, error) {
	if err := validateGate(gate); err != nil {
		return GateConfiguration{}, err
	}
	g := GateConfiguration{gate: gate}
	if err := g.SetMotionSensitivity(motion); err != nil {
		return GateConfiguration{}, err
	}
	if rest != 0 || gate >= restlessGates {
		if err := g.SetRestSensitivity(rest); err != nil {
			return GateConfiguration{}, err
		}
	}
	return g, nil
}

// Gate returns the gate index.
func (g GateConfiguration) Gate() int { return g.gate }

// MotionSensitivity returns the motion sensitivity.
func (g GateConfiguration) MotionSensitivity() int { return g.motion }

// RestSensitivity returns the rest (static) sensitivity.
func (g GateConfiguration) RestSensitivity() int { return g.rest }

// HasRestSensitivity indicates whether the gate supports rest sensitivity.
func (g GateConfiguration) HasRestSensitivity() bool {
	return g.gate >= restlessGates
}

// Distance returns the far edge of the gate in centimeters.
func (g GateConfiguration) Distance() int {
	return MaxSupportedDistance(g.gate)
}

// SetMotionSensitivity sets the motion sensitivity.
func (g *GateConfiguration) SetMotionSensitivity(v int) error {
	if err := validateRange("motion sensitivity", v, 0, MaxSensitivity); err != nil {
		return err
	}
	g.motion = v
	return nil
}

// SetRestSensitivity sets the rest sensitivity.
// It fails with ErrInvalidOperation on gates 0 and 1.
func (g *GateConfiguration) SetRestSensitivity(v int) error {
	if !g.HasRestSensitivity() {
		return invalidOperation("gate %d has no rest sensitivity", g.gate)
	}
	if err := validateRange("rest sensitivity", v, 0, MaxSensitivity); err != nil {
		return err
	}
	g.rest = v
	return nil
}

// String implements fmt.Stringer.
func (g GateConfiguration) String() string {
	if !g.HasRestSensitivity() {
		return fmt.Sprintf("gate %d: motion %d", g.gate, g.motion)
	}
	return fmt.Sprintf("gate %d: motion %d rest %d", g.gate, g.motion, g.rest)
}

func (g GateConfiguration) command() Command {
	value := params(nil).
		add(paramGate, uint32(g.gate)).
		add(paramMotion, uint32(g.motion)).
		add(paramRest, uint32(g.rest))
	return Command{Kind: CmdSetGateSensitivity, Value: value}
}

// factory default sensitivities
var (
	defaultMotion = [GateCount]int{50, 50, 40, 30, 20, 15, 15, 15, 15}
	defaultRest   = [GateCount]int{0, 0, 40, 40, 30, 30, 20, 20, 20}
)

// Configuration is the gate table and global detection settings.
// It is read with ReadConfiguration or built locally and applied with
// Session.ApplyConfiguration.
type Configuration struct {
	maxDistanceGate int
	maxMovingGate   int
	maxStaticGate   int
	gates           [GateCount]GateConfiguration
	noOneDuration   time.Duration
}

// NewConfiguration creates a configuration with the factory defaults.
func NewConfiguration() *Configuration {
	c := &Configuration{
		maxDistanceGate: MaxMaxGate,
		maxMovingGate:   MaxMaxGate,
		maxStaticGate:   MaxMaxGate,
		noOneDuration:   5 * time.Second,
	}
	for i := range c.gates {
		c.gates[i] = GateConfiguration{gate: i, motion: defaultMotion[i], rest: defaultRest[i]}
	}
	return c
}

// MaxDistanceGate is the farthest gate the module supports.
func (c *Configuration) MaxDistanceGate() int { return c.maxDistanceGate }

// MaxMovingGate is the farthest gate for moving detection.
func (c *Configuration) MaxMovingGate() int { return c.maxMovingGate }

// MaxStaticGate is the farthest gate for static detection.
func (c *Configuration) MaxStaticGate() int { return c.maxStaticGate }

// NoOneDuration is how long presence is held after the last detection.
func (c *Configuration) NoOneDuration() time.Duration { return c.noOneDuration }

// MaxMovingDistance is the farthest distance (cm) for moving detection.
func (c *Configuration) MaxMovingDistance() int {
	return MaxSupportedDistance(c.maxMovingGate)
}

// MaxStaticDistance is the farthest distance (cm) for static detection.
func (c *Configuration) MaxStaticDistance() int {
	return MaxSupportedDistance(c.maxStaticGate)
}

// Gate returns the configuration of a gate.
func (c *Configuration) Gate(gate int) (GateConfiguration, error) {
	if err := validateGate(gate); err != nil {
		return GateConfiguration{}, err
	}
	return c.gates[gate], nil
}

// Gates returns all gate configurations.
func (c *Configuration) Gates() [GateCount]GateConfiguration {
	return c.gates
}

// MotionSensitivities returns the motion sensitivity of every gate.
func (c *Configuration) MotionSensitivities() (s [GateCount]int) {
	for i, g := range c.gates {
		s[i] = g.motion
	}
	return
}

// RestSensitivities returns the rest sensitivity of every gate.
func (c *Configuration) RestSensitivities() (s [GateCount]int) {
	for i, g := range c.gates {
		s[i] = g.rest
	}
	return
}

// SetMaxMovingGate sets the farthest gate for moving detection.
func (c *Configuration) SetMaxMovingGate(gate int) error {
	if err := validateMaxGate("max moving gate", gate); err != nil {
		return err
	}
	c.maxMovingGate = gate
	return nil
}

// SetMaxStaticGate sets the farthest gate for static detection.
func (c *Configuration) SetMaxStaticGate(gate int) error {
	if err := validateMaxGate("max static gate", gate); err != nil {
		return err
	}
	c.maxStaticGate = gate
	return nil
}

// SetNoOneDuration sets the no-one duration, truncated to seconds.
func (c *Configuration) SetNoOneDuration(d time.Duration) error {
	secs, err := noOneSeconds(d)
	if err != nil {
		return err
	}
	c.noOneDuration = time.Duration(secs) * time.Second
	return nil
}

// SetGate replaces the configuration of the gate g.Gate().
func (c *Configuration) SetGate(g GateConfiguration) {
	c.gates[g.gate] = g
}

// Commands returns the commands that push the configuration to the module.
func (c *Configuration) Commands() ([]Command, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cmd, err := SetMaxGatesAndTimeoutCommand(c.maxMovingGate, c.maxStaticGate, c.noOneDuration)
	if err != nil {
		return nil, err
	}
	cmds := append(make([]Command, 0, 1+GateCount), cmd)
	for _, g := range c.gates {
		cmds = append(cmds, g.command())
	}
	return cmds, nil
}

// Validate checks all values, including those read from the module.
func (c *Configuration) Validate() error {
	if err := validateMaxGate("max moving gate", c.maxMovingGate); err != nil {
		return err
	}
	if err := validateMaxGate("max static gate", c.maxStaticGate); err != nil {
		return err
	}
	if _, err := noOneSeconds(c.noOneDuration); err != nil {
		return err
	}
	for _, g := range c.gates {
		if _, err := NewGateConfiguration(g.gate, g.motion, g.rest); err != nil {
			return err
		}
	}
	return nil
}

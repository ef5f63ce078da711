package ld2410

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// CommandKind is the 16-bit command code sent to the module.
type CommandKind uint16

// Command kinds.
const (
	CmdSetMaxGatesAndTimeout  CommandKind = 0x0060
	CmdReadConfiguration      CommandKind = 0x0061
	CmdEnableEngineeringMode  CommandKind = 0x0062
	CmdDisableEngineeringMode CommandKind = 0x0063
	CmdSetGateSensitivity     CommandKind = 0x0064
	CmdReadFirmwareVersion    CommandKind = 0x00A0
	CmdSetBaudRate            CommandKind = 0x00A1
	CmdFactoryReset           CommandKind = 0x00A2
	CmdRestart                CommandKind = 0x00A3
	CmdSetBluetooth           CommandKind = 0x00A4
	CmdReadMAC                CommandKind = 0x00A5
	CmdEndConfiguration       CommandKind = 0x00FE
	CmdEnableConfiguration    CommandKind = 0x00FF
)

var commandNames = map[CommandKind]string{
	CmdSetMaxGatesAndTimeout:  "set-max-gates-and-timeout",
	CmdReadConfiguration:      "read-configuration",
	CmdEnableEngineeringMode:  "enable-engineering-mode",
	CmdDisableEngineeringMode: "disable-engineering-mode",
	CmdSetGateSensitivity:     "set-gate-sensitivity",
	CmdReadFirmwareVersion:    "read-firmware-version",
	CmdSetBaudRate:            "set-baud-rate",
	CmdFactoryReset:           "factory-reset",
	CmdRestart:                "restart",
	CmdSetBluetooth:           "set-bluetooth",
	CmdReadMAC:                "read-mac",
	CmdEndConfiguration:       "end-configuration",
	CmdEnableConfiguration:    "enable-configuration",
}

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%04x)", uint16(k))
}

// IsValid checks if the kind is a known command.
func (k CommandKind) IsValid() bool {
	_, ok := commandNames[k]
	return ok
}

// AckCode returns the code the module uses to acknowledge the command.
func (k CommandKind) AckCode() uint16 {
	return uint16(k) + ackCodeOffset
}

// Command is a command ready to be sent.
type Command struct {
	Kind  CommandKind
	Value []byte
}

// Bytes returns the encoded frame.
func (c Command) Bytes() []byte {
	payload := make([]byte, codeSize, codeSize+len(c.Value))
	binary.LittleEndian.PutUint16(payload, uint16(c.Kind))
	payload = append(payload, c.Value...)
	return appendFrame(make([]byte, 0, prefixSize+len(payload)+terminatorSize), FamilyCommand, payload)
}

// WriteTo writes the encoded frame.
func (c Command) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Bytes())
	return int64(n), err
}

// Parameter words of the set-max-gates and set-gate-sensitivity commands.
const (
	paramMaxMovingGate uint16 = 0x0000
	paramMaxStaticGate uint16 = 0x0001
	paramNoOneDuration uint16 = 0x0002

	paramGate   uint16 = 0x0000
	paramMotion uint16 = 0x0001
	paramRest   uint16 = 0x0002

	allGates uint32 = 0xFFFF
)

type params []byte

func (p params) add(word uint16, value uint32) params {
	p = binary.LittleEndian.AppendUint16(p, word)
	return binary.LittleEndian.AppendUint32(p, value)
}

// EnableConfigurationCommand enters configuration mode.
func EnableConfigurationCommand() Command {
	return Command{Kind: CmdEnableConfiguration, Value: []byte{0x01, 0x00}}
}

// EndConfigurationCommand leaves configuration mode.
func EndConfigurationCommand() Command {
	return Command{Kind: CmdEndConfiguration}
}

// SetMaxGatesAndTimeoutCommand sets the farthest moving and static gates
// and the no-one duration.
func SetMaxGatesAndTimeoutCommand(movingGate, staticGate int, noOne time.Duration) (Command, error) {
	if err := validateMaxGate("max moving gate", movingGate); err != nil {
		return Command{}, err
	}
	if err := validateMaxGate("max static gate", staticGate); err != nil {
		return Command{}, err
	}
	secs, err := noOneSeconds(noOne)
	if err != nil {
		return Command{}, err
	}
	value := params(nil).
		add(paramMaxMovingGate, uint32(movingGate)).
		add(paramMaxStaticGate, uint32(staticGate)).
		add(paramNoOneDuration, uint32(secs))
	return Command{Kind: CmdSetMaxGatesAndTimeout, Value: value}, nil
}

// ReadConfigurationCommand reads gate sensitivities and global settings.
func ReadConfigurationCommand() Command {
	return Command{Kind: CmdReadConfiguration}
}

// EngineeringModeCommand switches engineering reports on or off.
func EngineeringModeCommand(on bool) Command {
	if on {
		return Command{Kind: CmdEnableEngineeringMode}
	}
	return Command{Kind: CmdDisableEngineeringMode}
}

// SetGateSensitivityCommand sets the sensitivities of a single gate.
func SetGateSensitivityCommand(gate, motion, rest int) (Command, error) {
	g, err := NewGateConfiguration(gate, motion, rest)
	if err != nil {
		return Command{}, err
	}
	return g.command(), nil
}

// SetAllGatesSensitivityCommand applies the same sensitivities to all gates.
// The module ignores the rest sensitivity of gates 0 and 1.
func SetAllGatesSensitivityCommand(motion, rest int) (Command, error) {
	if err := validateRange("motion sensitivity", motion, 0, MaxSensitivity); err != nil {
		return Command{}, err
	}
	if err := validateRange("rest sensitivity", rest, 0, MaxSensitivity); err != nil {
		return Command{}, err
	}
	value := params(nil).
		add(paramGate, allGates).
		add(paramMotion, uint32(motion)).
		add(paramRest, uint32(rest))
	return Command{Kind: CmdSetGateSensitivity, Value: value}, nil
}

// ReadFirmwareVersionCommand reads the firmware version.
func ReadFirmwareVersionCommand() Command {
	return Command{Kind: CmdReadFirmwareVersion}
}

// SetBaudRateCommand changes the baud rate, effective after restart.
func SetBaudRateCommand(rate BaudRate) (Command, error) {
	if !rate.IsValid() {
		return Command{}, &ValidationError{Field: "baud rate index", Value: int(rate), Min: int(Baud9600), Max: int(Baud460800)}
	}
	value := binary.LittleEndian.AppendUint16(nil, uint16(rate))
	return Command{Kind: CmdSetBaudRate, Value: value}, nil
}

// FactoryResetCommand restores factory settings.
func FactoryResetCommand() Command {
	return Command{Kind: CmdFactoryReset}
}

// RestartCommand reboots the module.
func RestartCommand() Command {
	return Command{Kind: CmdRestart}
}

// BluetoothCommand switches bluetooth on or off.
func BluetoothCommand(on bool) Command {
	if on {
		return Command{Kind: CmdSetBluetooth, Value: []byte{0x01, 0x00}}
	}
	return Command{Kind: CmdSetBluetooth, Value: []byte{0x00, 0x00}}
}

// ReadMACCommand reads the bluetooth MAC address.
func ReadMACCommand() Command {
	return Command{Kind: CmdReadMAC, Value: []byte{0x01, 0x00}}
}

package ld2410

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Ack is a decoded command acknowledgment.
type Ack struct {
	Kind CommandKind
	// Status is zero on success.
	Status uint16
	// Result holds the kind-specific fields of a successful ack:
	// *ConfigModeInfo, *Configuration, *FirmwareVersion or net.HardwareAddr.
	// It is nil for kinds acknowledged with a status only.
	Result interface{}
}

// Family implements Frame.
func (a *Ack) Family() Family {
	return FamilyCommand
}

// Success indicates the module accepted the command.
func (a *Ack) Success() bool {
	return a.Status == 0
}

// Err returns a CommandError if the ack carries a failure status.
func (a *Ack) Err() error {
	if a.Success() {
		return nil
	}
	return &CommandError{Kind: a.Kind, Status: a.Status}
}

// ConfigModeInfo is returned when entering configuration mode.
type ConfigModeInfo struct {
	ProtocolVersion uint16
	BufferSize      uint16
}

// FirmwareVersion identifies the module firmware.
type FirmwareVersion struct {
	Type  uint16
	Major uint8
	Minor uint8
	Patch uint32
}

// String implements fmt.Stringer in the vendor notation, e.g. V1.02.22062416.
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("V%d.%02d.%08x", v.Major, v.Minor, v.Patch)
}

const (
	statusSize          = 2
	configModeInfoSize  = statusSize + 4
	configurationSize   = statusSize + 4 + 2*GateCount + 2
	firmwareVersionSize = statusSize + 8
	macSize             = statusSize + 6
)

// decodeAck decodes the fields following the ack code. It returns the
// number of bytes used.
func decodeAck(kind CommandKind, b []byte) (*Ack, int, error) {
	if !kind.IsValid() {
		return nil, 0, &FormatError{Family: FamilyCommand, Reason: fmt.Sprintf("unknown ack for %s", kind)}
	}
	if len(b) < statusSize {
		return nil, 0, errIncomplete
	}
	ack := &Ack{Kind: kind, Status: binary.LittleEndian.Uint16(b)}
	if !ack.Success() {
		return ack, statusSize, nil
	}
	var size int
	switch kind {
	case CmdEnableConfiguration:
		size = configModeInfoSize
	case CmdReadConfiguration:
		size = configurationSize
	case CmdReadFirmwareVersion:
		size = firmwareVersionSize
	case CmdReadMAC:
		size = macSize
	default:
		return ack, statusSize, nil
	}
	if len(b) < size {
		return nil, 0, errIncomplete
	}
	b = b[statusSize:size]
	switch kind {
	case CmdEnableConfiguration:
		ack.Result = &ConfigModeInfo{
			ProtocolVersion: binary.LittleEndian.Uint16(b),
			BufferSize:      binary.LittleEndian.Uint16(b[2:]),
		}
	case CmdReadConfiguration:
		if b[0] != headMarker {
			return nil, 0, &FormatError{Family: FamilyCommand, Reason: "configuration head marker missing"}
		}
		ack.Result = decodeConfiguration(b[1:])
	case CmdReadFirmwareVersion:
		ver := binary.LittleEndian.Uint16(b[2:])
		ack.Result = &FirmwareVersion{
			Type:  binary.LittleEndian.Uint16(b),
			Major: uint8(ver >> 8),
			Minor: uint8(ver),
			Patch: binary.LittleEndian.Uint32(b[4:]),
		}
	case CmdReadMAC:
		mac := make(net.HardwareAddr, 6)
		copy(mac, b)
		ack.Result = mac
	}
	return ack, size, nil
}

// decodeConfiguration decodes the read-configuration fields after the head
// marker. Values come from the module and are not range checked.
func decodeConfiguration(b []byte) *Configuration {
	c := &Configuration{
		maxDistanceGate: int(b[0]),
		maxMovingGate:   int(b[1]),
		maxStaticGate:   int(b[2]),
	}
	motion, rest := b[3:3+GateCount], b[3+GateCount:3+2*GateCount]
	for i := range c.gates {
		c.gates[i] = GateConfiguration{gate: i, motion: int(motion[i]), rest: int(rest[i])}
	}
	secs := binary.LittleEndian.Uint16(b[3+2*GateCount:])
	c.noOneDuration = time.Duration(secs) * time.Second
	return c
}

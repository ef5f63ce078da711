package ld2410

import (
	"encoding/binary"
	"fmt"
)

// ReportType is the tag of a report frame.
type ReportType uint8

// Report types.
const (
	ReportEngineering ReportType = 0x01
	ReportBasic       ReportType = 0x02
)

// String implements fmt.Stringer.
func (t ReportType) String() string {
	switch t {
	case ReportEngineering:
		return "engineering"
	case ReportBasic:
		return "basic"
	}
	return fmt.Sprintf("report(%02x)", uint8(t))
}

// TargetState summarizes what the module currently detects.
type TargetState uint8

// Target states.
const (
	TargetNone       TargetState = 0x00
	TargetMoving     TargetState = 0x01
	TargetStationary TargetState = 0x02
	TargetBoth       TargetState = 0x03
)

// String implements fmt.Stringer.
func (s TargetState) String() string {
	switch s {
	case TargetNone:
		return "none"
	case TargetMoving:
		return "moving"
	case TargetStationary:
		return "stationary"
	case TargetBoth:
		return "both"
	}
	return fmt.Sprintf("state(%02x)", uint8(s))
}

// HasMoving indicates a moving target is present.
func (s TargetState) HasMoving() bool {
	return s == TargetMoving || s == TargetBoth
}

// HasStationary indicates a stationary target is present.
func (s TargetState) HasStationary() bool {
	return s == TargetStationary || s == TargetBoth
}

// Target is the distance (cm) and energy (0-100) of a detected target.
type Target struct {
	Distance int
	Energy   int
}

// Report is an unsolicited sensor report.
type Report struct {
	Type       ReportType
	State      TargetState
	Moving     Target
	Stationary Target
	// DetectionDistance is in centimeters.
	DetectionDistance int
	// Engineering is only set for engineering reports.
	Engineering *EngineeringData
}

// Family implements Frame.
func (r *Report) Family() Family {
	return FamilyReport
}

// EngineeringData is the per-gate detail of an engineering report.
type EngineeringData struct {
	MaxMovingGate int
	MaxStaticGate int
	MovingEnergy  [GateCount]uint8
	StaticEnergy  [GateCount]uint8
	// Additional is the vendor-specific tail (light sensor, out pin),
	// kept undecoded.
	Additional []byte
}

// MaxMovingDistance is the farthest distance (cm) covered by moving detection.
func (e *EngineeringData) MaxMovingDistance() int {
	return MaxSupportedDistance(e.MaxMovingGate)
}

// MaxStaticDistance is the farthest distance (cm) covered by static detection.
func (e *EngineeringData) MaxStaticDistance() int {
	return MaxSupportedDistance(e.MaxStaticGate)
}

const (
	headMarker byte = 0xAA
	tailMarker byte = 0x55
	checkByte  byte = 0x00

	// tag, head, state, moving distance+energy, static distance+energy, detection distance
	basicFieldsSize = 1 + 1 + 1 + 3 + 3 + 2
	trailerSize     = 2
	basicReportSize = basicFieldsSize + trailerSize
	engineeringSize = basicFieldsSize + 2 + 2*GateCount + trailerSize
)

// decodeReport decodes a report payload of exactly the declared length.
func decodeReport(b []byte) (*Report, error) {
	if len(b) < basicReportSize {
		return nil, &FormatError{Family: FamilyReport, Reason: "payload too short"}
	}
	rtype := ReportType(b[0])
	if rtype != ReportBasic && rtype != ReportEngineering {
		return nil, &FormatError{Family: FamilyReport, Reason: fmt.Sprintf("unknown report type %02x", b[0])}
	}
	if b[1] != headMarker {
		return nil, &FormatError{Family: FamilyReport, Reason: "head marker missing"}
	}
	if b[len(b)-2] != tailMarker || b[len(b)-1] != checkByte {
		return nil, &FormatError{Family: FamilyReport, Reason: "tail marker missing"}
	}
	r := &Report{
		Type:  rtype,
		State: TargetState(b[2]),
		Moving: Target{
			Distance: int(binary.LittleEndian.Uint16(b[3:])),
			Energy:   int(b[5]),
		},
		Stationary: Target{
			Distance: int(binary.LittleEndian.Uint16(b[6:])),
			Energy:   int(b[8]),
		},
		DetectionDistance: int(binary.LittleEndian.Uint16(b[9:])),
	}
	if rtype == ReportBasic {
		return r, nil
	}

	if len(b) < engineeringSize {
		return nil, &FormatError{Family: FamilyReport, Reason: "engineering payload too short"}
	}
	eng := &EngineeringData{
		MaxMovingGate: int(b[basicFieldsSize]),
		MaxStaticGate: int(b[basicFieldsSize+1]),
	}
	gates := b[basicFieldsSize+2:]
	copy(eng.MovingEnergy[:], gates[:GateCount])
	copy(eng.StaticEnergy[:], gates[GateCount:2*GateCount])
	if extra := b[engineeringSize-trailerSize : len(b)-trailerSize]; len(extra) > 0 {
		eng.Additional = append([]byte(nil), extra...)
	}
	r.Engineering = eng
	return r, nil
}

// Bytes returns the report encoded as a report frame, as the module sends it.
func (r *Report) Bytes() []byte {
	payload := []byte{byte(r.Type), headMarker, byte(r.State)}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(r.Moving.Distance))
	payload = append(payload, byte(r.Moving.Energy))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(r.Stationary.Distance))
	payload = append(payload, byte(r.Stationary.Energy))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(r.DetectionDistance))
	if eng := r.Engineering; eng != nil {
		payload = append(payload, byte(eng.MaxMovingGate), byte(eng.MaxStaticGate))
		payload = append(payload, eng.MovingEnergy[:]...)
		payload = append(payload, eng.StaticEnergy[:]...)
		payload = append(payload, eng.Additional...)
	}
	payload = append(payload, tailMarker, checkByte)
	return appendFrame(nil, FamilyReport, payload)
}

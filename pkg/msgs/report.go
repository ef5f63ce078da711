package msgs

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
)

// ErrInvalidMessage indicates a message decodes but carries values a
// module never reports.
var ErrInvalidMessage = errors.New("invalid message")

// Report is the wire form of ld2410.Report.
type Report struct {
	Timestamp          int64        `protobuf:"varint,1,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Type               uint32       `protobuf:"varint,2,opt,name=type,proto3" json:"type,omitempty"`
	State              uint32       `protobuf:"varint,3,opt,name=state,proto3" json:"state,omitempty"`
	MovingDistance     uint32       `protobuf:"varint,4,opt,name=moving_distance,json=movingDistance,proto3" json:"moving_distance,omitempty"`
	MovingEnergy       uint32       `protobuf:"varint,5,opt,name=moving_energy,json=movingEnergy,proto3" json:"moving_energy,omitempty"`
	StationaryDistance uint32       `protobuf:"varint,6,opt,name=stationary_distance,json=stationaryDistance,proto3" json:"stationary_distance,omitempty"`
	StationaryEnergy   uint32       `protobuf:"varint,7,opt,name=stationary_energy,json=stationaryEnergy,proto3" json:"stationary_energy,omitempty"`
	DetectionDistance  uint32       `protobuf:"varint,8,opt,name=detection_distance,json=detectionDistance,proto3" json:"detection_distance,omitempty"`
	Engineering        *Engineering `protobuf:"bytes,9,opt,name=engineering,proto3" json:"engineering,omitempty"`
}

// Reset implements proto.Message.
func (m *Report) Reset() { *m = Report{} }

// String implements proto.Message.
func (m *Report) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Report) ProtoMessage() {}

// Engineering is the wire form of ld2410.EngineeringData.
type Engineering struct {
	MaxMovingGate uint32 `protobuf:"varint,1,opt,name=max_moving_gate,json=maxMovingGate,proto3" json:"max_moving_gate,omitempty"`
	MaxStaticGate uint32 `protobuf:"varint,2,opt,name=max_static_gate,json=maxStaticGate,proto3" json:"max_static_gate,omitempty"`
	MovingEnergy  []byte `protobuf:"bytes,3,opt,name=moving_energy,json=movingEnergy,proto3" json:"moving_energy,omitempty"`
	StaticEnergy  []byte `protobuf:"bytes,4,opt,name=static_energy,json=staticEnergy,proto3" json:"static_energy,omitempty"`
	Additional    []byte `protobuf:"bytes,5,opt,name=additional,proto3" json:"additional,omitempty"`
}

// Reset implements proto.Message.
func (m *Engineering) Reset() { *m = Engineering{} }

// String implements proto.Message.
func (m *Engineering) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Engineering) ProtoMessage() {}

// NewReport converts a report received at the given time.
func NewReport(r *ld2410.Report, at time.Time) *Report {
	m := &Report{
		Timestamp:          at.UnixNano(),
		Type:               uint32(r.Type),
		State:              uint32(r.State),
		MovingDistance:     uint32(r.Moving.Distance),
		MovingEnergy:       uint32(r.Moving.Energy),
		StationaryDistance: uint32(r.Stationary.Distance),
		StationaryEnergy:   uint32(r.Stationary.Energy),
		DetectionDistance:  uint32(r.DetectionDistance),
	}
	if e := r.Engineering; e != nil {
		m.Engineering = &Engineering{
			MaxMovingGate: uint32(e.MaxMovingGate),
			MaxStaticGate: uint32(e.MaxStaticGate),
			MovingEnergy:  append([]byte(nil), e.MovingEnergy[:]...),
			StaticEnergy:  append([]byte(nil), e.StaticEnergy[:]...),
			Additional:    append([]byte(nil), e.Additional...),
		}
	}
	return m
}

// Time is when the report was received.
func (m *Report) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// Decode converts the message back to a report.
func (m *Report) Decode() (*ld2410.Report, error) {
	r := &ld2410.Report{
		Type:              ld2410.ReportType(m.Type),
		State:             ld2410.TargetState(m.State),
		Moving:            ld2410.Target{Distance: int(m.MovingDistance), Energy: int(m.MovingEnergy)},
		Stationary:        ld2410.Target{Distance: int(m.StationaryDistance), Energy: int(m.StationaryEnergy)},
		DetectionDistance: int(m.DetectionDistance),
	}
	switch r.Type {
	case ld2410.ReportBasic:
		if m.Engineering != nil {
			return nil, fmt.Errorf("%w: engineering data in basic report", ErrInvalidMessage)
		}
	case ld2410.ReportEngineering:
		e := m.Engineering
		if e == nil {
			return nil, fmt.Errorf("%w: engineering report without engineering data", ErrInvalidMessage)
		}
		if len(e.MovingEnergy) != ld2410.GateCount || len(e.StaticEnergy) != ld2410.GateCount {
			return nil, fmt.Errorf("%w: gate energies of %d/%d gates", ErrInvalidMessage,
				len(e.MovingEnergy), len(e.StaticEnergy))
		}
		r.Engineering = &ld2410.EngineeringData{
			MaxMovingGate: int(e.MaxMovingGate),
			MaxStaticGate: int(e.MaxStaticGate),
		}
		copy(r.Engineering.MovingEnergy[:], e.MovingEnergy)
		copy(r.Engineering.StaticEnergy[:], e.StaticEnergy)
		if len(e.Additional) > 0 {
			r.Engineering.Additional = e.Additional
		}
	default:
		return nil, fmt.Errorf("%w: report type %d", ErrInvalidMessage, m.Type)
	}
	if m.State > uint32(ld2410.TargetBoth) {
		return nil, fmt.Errorf("%w: target state %d", ErrInvalidMessage, m.State)
	}
	return r, nil
}

// EncodeReport encodes a report received at the given time.
func EncodeReport(r *ld2410.Report, at time.Time) ([]byte, error) {
	return proto.Marshal(NewReport(r, at))
}

// DecodeReport decodes bytes into Report.
func DecodeReport(data []byte) (*Report, error) {
	var m Report
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

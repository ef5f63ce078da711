package ld2410

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Family identifies one of the two frame families multiplexed on the stream.
type Family int

const (
	// FamilyCommand frames carry commands and their acks.
	FamilyCommand Family = iota + 1
	// FamilyReport frames carry unsolicited sensor reports.
	FamilyReport
)

// String implements fmt.Stringer.
func (f Family) String() string {
	switch f {
	case FamilyCommand:
		return "command"
	case FamilyReport:
		return "report"
	}
	return "unknown"
}

// Frame is a decoded frame, either *Ack or *Report.
type Frame interface {
	Family() Family
}

var (
	commandHeader     = []byte{0xFD, 0xFC, 0xFB, 0xFA}
	commandTerminator = []byte{0x04, 0x03, 0x02, 0x01}
	reportHeader      = []byte{0xF4, 0xF3, 0xF2, 0xF1}
	reportTerminator  = []byte{0xF8, 0xF7, 0xF6, 0xF5}
)

const (
	headerSize     = 4
	lengthSize     = 2
	terminatorSize = 4
	codeSize       = 2
	prefixSize     = headerSize + lengthSize

	// ackCodeOffset is added by the module to a command code to form its ack code.
	ackCodeOffset uint16 = 0x0100

	// MaxPayloadLength bounds the declared length of any frame. A larger
	// value can only come from noise matching a header.
	MaxPayloadLength = 0x100
)

// ParseStatus is the outcome of TryParse.
type ParseStatus int

const (
	// ParseNoFrame means no frame header starts at the position.
	ParseNoFrame ParseStatus = iota
	// ParseIncomplete means a frame starts at the position but more bytes are needed.
	ParseIncomplete
	// ParseOK means a complete frame was decoded.
	ParseOK
)

// ParseResult indicates the result of one TryParse call.
type ParseResult struct {
	Status   ParseStatus
	Frame    Frame
	Consumed int
}

var errIncomplete = errors.New("incomplete")

// TryParse attempts to decode one frame starting at buf[start].
// Nothing is consumed unless Status is ParseOK. A FormatError means a
// header and length were found but the frame is malformed; the caller
// resumes scanning at the next byte.
func TryParse(buf []byte, start int) (pr ParseResult, err error) {
	if start < 0 || start >= len(buf) {
		return
	}
	b := buf[start:]
	family := matchHeader(b)
	if family == 0 {
		if len(b) < headerSize && isHeaderPrefix(b) {
			pr.Status = ParseIncomplete
		}
		return
	}
	pr.Status = ParseIncomplete
	if len(b) < prefixSize {
		return
	}
	declared := int(binary.LittleEndian.Uint16(b[headerSize:]))
	if declared > MaxPayloadLength {
		return ParseResult{}, &FormatError{Family: family, Reason: "declared length too large"}
	}
	if len(b) < prefixSize+declared {
		return
	}

	var frame Frame
	var payloadLen int
	switch family {
	case FamilyCommand:
		frame, payloadLen, err = parseAck(b[prefixSize:], declared)
	case FamilyReport:
		if len(b) < prefixSize+declared+terminatorSize {
			return
		}
		payloadLen = declared
		frame, err = decodeReport(b[prefixSize : prefixSize+declared])
	}
	if err == errIncomplete {
		return pr, nil
	}
	if err != nil {
		return ParseResult{}, err
	}

	end := prefixSize + payloadLen
	if len(b) < end+terminatorSize {
		return pr, nil
	}
	if !bytes.Equal(b[end:end+terminatorSize], terminatorOf(family)) {
		fe := &FormatError{Family: family, Reason: "terminator mismatch"}
		if ack, ok := frame.(*Ack); ok {
			fe.Code = uint16(ack.Kind) + ackCodeOffset
		}
		return ParseResult{}, fe
	}
	return ParseResult{Status: ParseOK, Frame: frame, Consumed: end + terminatorSize}, nil
}

// parseAck decodes the payload of a command-family frame. The declared
// length is a lower bound of the payload: the kind-specific layout wins when
// it is longer.
func parseAck(payload []byte, declared int) (*Ack, int, error) {
	if declared < codeSize {
		return nil, 0, &FormatError{Family: FamilyCommand, Reason: "payload shorter than command code"}
	}
	code := binary.LittleEndian.Uint16(payload)
	if code < ackCodeOffset {
		return nil, 0, &FormatError{Family: FamilyCommand, Code: code, Reason: "not an ack code"}
	}
	kind := CommandKind(code - ackCodeOffset)
	ack, used, err := decodeAck(kind, payload[codeSize:])
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Code = code
		}
		return nil, 0, err
	}
	payloadLen := codeSize + used
	if declared > payloadLen {
		payloadLen = declared
	}
	return ack, payloadLen, nil
}

func matchHeader(b []byte) Family {
	switch {
	case bytes.HasPrefix(b, commandHeader):
		return FamilyCommand
	case bytes.HasPrefix(b, reportHeader):
		return FamilyReport
	}
	return 0
}

func isHeaderPrefix(b []byte) bool {
	return bytes.HasPrefix(commandHeader, b) || bytes.HasPrefix(reportHeader, b)
}

func terminatorOf(f Family) []byte {
	if f == FamilyReport {
		return reportTerminator
	}
	return commandTerminator
}

// appendFrame appends a complete frame of the family around payload.
func appendFrame(dst []byte, f Family, payload []byte) []byte {
	header := commandHeader
	if f == FamilyReport {
		header = reportHeader
	}
	dst = append(dst, header...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	return append(dst, terminatorOf(f)...)
}

// Package ld2410 implements the serial protocol of HLK-LD2410 style
// millimeter-wave presence sensors.
package ld2410

// The module speaks two frame families over one UART stream:
//
//   command: FD FC FB FA | len u16 | code u16 | value | 04 03 02 01
//   report:  F4 F3 F2 F1 | len u16 | tag | AA | body | 55 00 | F8 F7 F6 F5
//
// All integers are little-endian. An ack carries the command code plus
// 0x0100. There is no sequence number, so at most one command is
// outstanding and acks are correlated by code only.
//
// Reports arrive continuously and are interleaved with acks. Session
// scans the receive buffer byte by byte for headers, holds partial
// frames until the rest arrives, and dispatches complete frames in
// stream order: reports to the ReportHandler, acks to the waiting command.

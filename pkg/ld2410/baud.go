package ld2410

import "fmt"

// BaudRate is the baud rate index understood by the module.
type BaudRate uint16

// Baud rates.
const (
	Baud9600 BaudRate = iota + 1
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud256000
	Baud460800
)

// DefaultBaudRate is the factory setting.
const DefaultBaudRate = Baud256000

var baudRates = [...]int{9600, 19200, 38400, 57600, 115200, 230400, 256000, 460800}

// IsValid checks if the index is a known baud rate.
func (b BaudRate) IsValid() bool {
	return b >= Baud9600 && b <= Baud460800
}

// BitsPerSecond returns the baud rate in bits per second, 0 if invalid.
func (b BaudRate) BitsPerSecond() int {
	if !b.IsValid() {
		return 0
	}
	return baudRates[b-1]
}

// String implements fmt.Stringer.
func (b BaudRate) String() string {
	if !b.IsValid() {
		return fmt.Sprintf("baud(%d)", uint16(b))
	}
	return fmt.Sprintf("%d", b.BitsPerSecond())
}

// BaudRateOf finds the index of a baud rate in bits per second.
func BaudRateOf(bps int) (BaudRate, error) {
	for i, r := range baudRates {
		if r == bps {
			return BaudRate(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unsupported baud rate %d", bps)
}

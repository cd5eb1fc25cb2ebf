package transport

import (
	"errors"
	"fmt"
	"net"
)

// ErrInvalidAddress is returned for malformed BD addresses.
var ErrInvalidAddress = errors.New("invalid bluetooth address")

// BDAddr is a Bluetooth device address in display order
// (BDAddr{0x00, 0x11, ...} prints as 00:11:...).
type BDAddr [6]byte

// ParseBDAddr parses an address in 00:11:22:AA:BB:CC form.
func ParseBDAddr(s string) (BDAddr, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return BDAddr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var a BDAddr
	copy(a[:], hw)
	return a, nil
}

// String returns the colon-separated upper-case form.
func (a BDAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether the address is unset.
func (a BDAddr) IsZero() bool {
	return a == BDAddr{}
}

// MarshalText implements encoding.TextMarshaler.
func (a BDAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *BDAddr) UnmarshalText(data []byte) error {
	parsed, err := ParseBDAddr(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

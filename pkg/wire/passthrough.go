package wire

import "fmt"

// PassThroughOp is a panel subunit operation id.
type PassThroughOp uint8

const (
	OpSelect       PassThroughOp = 0x00
	OpUp           PassThroughOp = 0x01
	OpDown         PassThroughOp = 0x02
	OpLeft         PassThroughOp = 0x03
	OpRight        PassThroughOp = 0x04
	OpRootMenu     PassThroughOp = 0x09
	OpSetupMenu    PassThroughOp = 0x0A
	OpContentsMenu PassThroughOp = 0x0B
	OpFavoriteMenu PassThroughOp = 0x0C
	OpExit         PassThroughOp = 0x0D
	Op0            PassThroughOp = 0x20
	Op9            PassThroughOp = 0x29
	OpDot          PassThroughOp = 0x2A
	OpEnter        PassThroughOp = 0x2B
	OpClear        PassThroughOp = 0x2C
	OpChannelUp    PassThroughOp = 0x30
	OpChannelDown  PassThroughOp = 0x31
	OpPrevChannel  PassThroughOp = 0x32
	OpSoundSelect  PassThroughOp = 0x33
	OpInputSelect  PassThroughOp = 0x34
	OpDisplayInfo  PassThroughOp = 0x35
	OpHelp         PassThroughOp = 0x36
	OpPageUp       PassThroughOp = 0x37
	OpPageDown     PassThroughOp = 0x38
	OpPower        PassThroughOp = 0x40
	OpVolumeUp     PassThroughOp = 0x41
	OpVolumeDown   PassThroughOp = 0x42
	OpMute         PassThroughOp = 0x43
	OpPlay         PassThroughOp = 0x44
	OpStop         PassThroughOp = 0x45
	OpPause        PassThroughOp = 0x46
	OpRecord       PassThroughOp = 0x47
	OpRewind       PassThroughOp = 0x48
	OpFastForward  PassThroughOp = 0x49
	OpEject        PassThroughOp = 0x4A
	OpForward      PassThroughOp = 0x4B
	OpBackward     PassThroughOp = 0x4C
	OpAngle        PassThroughOp = 0x50
	OpSubpicture   PassThroughOp = 0x51
	OpF1           PassThroughOp = 0x71
	OpF2           PassThroughOp = 0x72
	OpF3           PassThroughOp = 0x73
	OpF4           PassThroughOp = 0x74
	OpF5           PassThroughOp = 0x75
	OpVendor       PassThroughOp = 0x7E
)

// String returns the operation name.
func (o PassThroughOp) String() string {
	switch o {
	case OpPlay:
		return "PLAY"
	case OpStop:
		return "STOP"
	case OpPause:
		return "PAUSE"
	case OpRecord:
		return "RECORD"
	case OpRewind:
		return "REWIND"
	case OpFastForward:
		return "FAST_FORWARD"
	case OpEject:
		return "EJECT"
	case OpForward:
		return "FORWARD"
	case OpBackward:
		return "BACKWARD"
	case OpVolumeUp:
		return "VOLUME_UP"
	case OpVolumeDown:
		return "VOLUME_DOWN"
	case OpMute:
		return "MUTE"
	case OpPower:
		return "POWER"
	case OpSelect:
		return "SELECT"
	case OpUp:
		return "UP"
	case OpDown:
		return "DOWN"
	case OpLeft:
		return "LEFT"
	case OpRight:
		return "RIGHT"
	case OpVendor:
		return "VENDOR_UNIQUE"
	default:
		return fmt.Sprintf("OP(0x%02X)", uint8(o))
	}
}

// KeyState is the button state of a pass-through operation.
type KeyState uint8

const (
	KeyPressed  KeyState = 0
	KeyReleased KeyState = 1
)

// String returns the key state name.
func (k KeyState) String() string {
	if k == KeyReleased {
		return "RELEASED"
	}
	return "PRESSED"
}

// keyReleaseBit marks a released key in the operation byte.
const keyReleaseBit = 0x80

// PassThrough is a decoded pass-through frame.
type PassThrough struct {
	Op         PassThroughOp
	State      KeyState
	VendorData []byte
}

// EncodePassThrough encodes p as [state<<7 | op, len, data].
func EncodePassThrough(p PassThrough) ([]byte, error) {
	if p.Op&keyReleaseBit != 0 {
		return nil, fmt.Errorf("pass-through op 0x%02X out of range", uint8(p.Op))
	}
	if len(p.VendorData) > 0xFF {
		return nil, fmt.Errorf("pass-through vendor data too long: %d bytes", len(p.VendorData))
	}
	b := make([]byte, 0, 2+len(p.VendorData))
	op := byte(p.Op)
	if p.State == KeyReleased {
		op |= keyReleaseBit
	}
	b = append(b, op, byte(len(p.VendorData)))
	return append(b, p.VendorData...), nil
}

// ParsePassThrough decodes a pass-through frame.
func ParsePassThrough(b []byte) (PassThrough, error) {
	if len(b) < 2 {
		return PassThrough{}, fmt.Errorf("failed to decode pass-through: %w", ErrShortPacket)
	}
	p := PassThrough{Op: PassThroughOp(b[0] &^ keyReleaseBit)}
	if b[0]&keyReleaseBit != 0 {
		p.State = KeyReleased
	}
	n := int(b[1])
	if len(b)-2 != n {
		return PassThrough{}, fmt.Errorf("failed to decode pass-through: data length %d, have %d", n, len(b)-2)
	}
	if n > 0 {
		p.VendorData = append([]byte(nil), b[2:]...)
	}
	return p, nil
}

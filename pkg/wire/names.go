package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseEventID parses an event name such as "TRACK_CHANGED" or "track",
// case-insensitive and with or without the _CHANGED suffix, or a number.
func ParseEventID(s string) (EventID, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		if e := EventID(v); e.IsValid() {
			return e, nil
		}
		return 0, fmt.Errorf("unknown event: %s", s)
	}
	want := normalizeName(s)
	for e := EventPlaybackStatusChanged; e <= EventVolumeChanged; e++ {
		name := e.String()
		if name == want || strings.TrimSuffix(name, "_CHANGED") == want {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown event: %s", s)
}

// ParsePassThroughOp parses an operation name such as "PLAY" or
// "volume-up", case-insensitive, or a number below 0x80.
func ParsePassThroughOp(s string) (PassThroughOp, error) {
	if v, err := strconv.ParseUint(s, 0, 7); err == nil {
		return PassThroughOp(v), nil
	}
	want := normalizeName(s)
	for v := 0; v <= int(OpVendor); v++ {
		if op := PassThroughOp(v); op.String() == want {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown pass-through operation: %s", s)
}

// ParseMediaAttrID parses a media attribute name such as "title" or
// "playing-time", or a number.
func ParseMediaAttrID(s string) (MediaAttrID, error) {
	if v, err := strconv.ParseUint(s, 0, 32); err == nil {
		if a := MediaAttrID(v); a >= MediaAttrTitle && a <= MediaAttrPlayingTime {
			return a, nil
		}
		return 0, fmt.Errorf("unknown media attribute: %s", s)
	}
	want := normalizeName(s)
	for a := MediaAttrTitle; a <= MediaAttrPlayingTime; a++ {
		if a.String() == want {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown media attribute: %s", s)
}

// ParsePlayerAttrID parses a player setting name (equalizer, repeat,
// shuffle, scan) or number.
func ParsePlayerAttrID(s string) (PlayerAttrID, error) {
	switch normalizeName(s) {
	case "EQUALIZER":
		return PlayerAttrEqualizer, nil
	case "REPEAT":
		return PlayerAttrRepeat, nil
	case "SHUFFLE":
		return PlayerAttrShuffle, nil
	case "SCAN":
		return PlayerAttrScan, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || !PlayerAttrID(v).IsValid() {
		return 0, fmt.Errorf("unknown player setting: %s", s)
	}
	return PlayerAttrID(v), nil
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
}

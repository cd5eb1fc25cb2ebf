package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
)

// TXTRecordMap is a decoded set of TXT records.
type TXTRecordMap map[string]string

// EncodeTXT builds the TXT records for an endpoint.
func EncodeTXT(info *EndpointInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyAddress:  info.Device.String(),
		TXTKeyRole:     strconv.FormatUint(uint64(info.Roles), 16),
		TXTKeyFeatures: fmt.Sprintf("%04x", uint16(info.Features)),
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeTXT parses the TXT records of an endpoint. Instance and Port are
// not part of the records and stay zero.
func DecodeTXT(txt TXTRecordMap) (*EndpointInfo, error) {
	info := &EndpointInfo{Name: txt[TXTKeyName]}

	addr, ok := txt[TXTKeyAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAddress)
	}
	dev, err := transport.ParseBDAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTXT, err)
	}
	info.Device = dev

	role, ok := txt[TXTKeyRole]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyRole)
	}
	r, err := strconv.ParseUint(role, 16, 8)
	if err != nil || r == 0 || session.Role(r)&^(session.RoleTarget|session.RoleController) != 0 {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidTXT, role)
	}
	info.Roles = session.Role(r)

	if feat, ok := txt[TXTKeyFeatures]; ok {
		f, err := strconv.ParseUint(feat, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: features %q", ErrInvalidTXT, feat)
		}
		info.Features = session.Features(f)
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found && k == "" {
			continue
		}
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
)

const (
	// ServiceType is the DNS-SD service type of stream transport endpoints.
	ServiceType = "_avrcp._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// MaxInstanceNameLen is the DNS-SD instance label limit.
	MaxInstanceNameLen = 63

	// BrowseTimeout bounds Find when the context has no deadline.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	TXTKeyAddress  = "addr"
	TXTKeyRole     = "role"
	TXTKeyFeatures = "feat"
	TXTKeyName     = "name"
)

var (
	ErrNotFound            = errors.New("service not found")
	ErrInvalidTXT          = errors.New("invalid TXT record")
	ErrMissingRequired     = errors.New("missing required TXT key")
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// EndpointInfo is what an endpoint advertises.
type EndpointInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port is the TCP listen port.
	Port uint16

	Device   transport.BDAddr
	Roles    session.Role
	Features session.Features

	// Name is an optional friendly name.
	Name string
}

// Service is a discovered endpoint.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Device   transport.BDAddr
	Roles    session.Role
	Features session.Features
	Name     string
}

// Address returns host:port for the first known address, preferring the
// first reported IPv4 address. Empty when no address is known.
func (s *Service) Address() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	pick := s.Addresses[0]
	for _, a := range s.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			pick = a
			break
		}
	}
	return net.JoinHostPort(pick, strconv.Itoa(int(s.Port)))
}

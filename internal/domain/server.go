package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

type ServerMode int

const (
	ServerModeInvalid ServerMode = iota
	ServerModeNoAuthentication
	ServerModeAuthentication
	ServerModeAuthenticationAndSecure
)

var serverModeNames = map[string]ServerMode{
	"noauth":         ServerModeNoAuthentication,
	"authentication": ServerModeAuthentication,
	"secure":         ServerModeAuthenticationAndSecure,
}

// ParseServerMode accepts either the numeric mode or its name.
func ParseServerMode(raw string) (ServerMode, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if mode, ok := serverModeNames[trimmed]; ok {
		return mode, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return ServerModeInvalid, fmt.Errorf("unsupported server mode %q", raw)
	}
	mode := ServerMode(value)
	if mode < ServerModeNoAuthentication || mode > ServerModeAuthenticationAndSecure {
		return ServerModeInvalid, fmt.Errorf("unsupported server mode %q", raw)
	}

	return mode, nil
}

func (m ServerMode) String() string {
	for name, mode := range serverModeNames {
		if mode == m {
			return name
		}
	}
	return "invalid"
}

// ServerIdentity is what the platform client is initialized with.
type ServerIdentity struct {
	IP        uint32
	GamePort  uint16     `flag:"game-port" validate:"required"`
	QueryPort uint16     `flag:"query-port" validate:"required"`
	Mode      ServerMode `flag:"server-mode" validate:"min=1,max=3"`
	Version   string     `flag:"version" validate:"required"`
}

type ServerMetadata struct {
	Product         string `flag:"product" validate:"required"`
	GameDescription string `flag:"game-desc" validate:"required"`
	ModDir          string `flag:"mod-dir" validate:"required"`
	ServerName      string `flag:"server-name"`
	Dedicated       bool
}

// ParseIPv4 accepts a host-order integer or a dotted quad.
func ParseIPv4(raw string) (uint32, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	if value, err := strconv.ParseUint(trimmed, 10, 32); err == nil {
		return uint32(value), nil
	}

	ip := net.ParseIP(trimmed).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid ipv4 address %q", raw)
	}

	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3]), nil
}

func FormatIPv4(ip uint32) string {
	return net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip)).String()
}

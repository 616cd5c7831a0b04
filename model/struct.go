package model

import (
	"net"
)

// DT carries one proxy cycle from receive to reply.
type DT struct {
	// SN serial number of the datagram since the server started
	SN uint64

	// RemoteAddr the requester udp address
	RemoteAddr *net.UDPAddr

	// Query raw datagram as received, transaction ID included
	Query []byte

	// Name and QType of the first question, for logs only
	Name  string
	QType uint16

	// Reply requester ID + cached payload, nil when the cycle failed
	Reply []byte

	Cached bool // when the payload came from the cache, true will be set
}

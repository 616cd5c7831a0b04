package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

const (
	IDLen      = 2   // transaction ID at the start of every message
	HeaderLen  = 12  // RFC 1035 Section 4.1.1
	MaxNameLen = 255 // wire octets, RFC 1035 Section 2.3.4
	MaxMsgLen  = dns.MaxMsgSize

	pointerMask = 0xC0
)

var (
	ErrDecode       = errors.New("dns name decode error")
	ErrShortMessage = errors.New("dns message shorter than header")
)

// DecodeName decodes the length prefixed label sequence at the start of
// question. Compression pointers are not followed, a question section
// always carries the name inline.
func DecodeName(question []byte) (string, error) {
	name, _, err := decodeName(question)
	return name, err
}

func decodeName(question []byte) (string, int, error) {
	var (
		sb  strings.Builder
		off int
	)

	for off < MaxNameLen {
		if off >= len(question) {
			return "", 0, fmt.Errorf("%w: missing terminator at offset %d", ErrDecode, off)
		}

		n := int(question[off])
		if n == 0 {
			off++
			if sb.Len() == 0 {
				return ".", off, nil
			}
			return sb.String(), off, nil
		}

		if n&pointerMask != 0 {
			return "", 0, fmt.Errorf("%w: unexpected label type 0x%02x at offset %d", ErrDecode, n&pointerMask, off)
		}

		start := off + 1
		if start+n > len(question) {
			return "", 0, fmt.Errorf("%w: label length %d overruns buffer at offset %d", ErrDecode, n, off)
		}

		for i, c := range question[start : start+n] {
			if !labelByte(c) {
				return "", 0, fmt.Errorf("%w: invalid byte 0x%02x at offset %d", ErrDecode, c, start+i)
			}
		}

		sb.Write(question[start : start+n])
		sb.WriteByte('.')
		off = start + n
	}

	return "", 0, fmt.Errorf("%w: name exceeds %d octets", ErrDecode, MaxNameLen)
}

// labelByte reports whether c may appear in a label rendered for logs.
func labelByte(c byte) bool {
	return c > 0x20 && c < 0x7f && c != '.'
}

// DecodeQuestion returns the name and type of the first question of query.
func DecodeQuestion(query []byte) (string, uint16, error) {
	if len(query) < HeaderLen {
		return "", 0, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(query))
	}

	name, off, err := decodeName(query[HeaderLen:])
	if err != nil {
		return "", 0, err
	}

	off += HeaderLen
	if off+2 > len(query) {
		return name, 0, fmt.Errorf("%w: missing question type", ErrDecode)
	}

	return name, binary.BigEndian.Uint16(query[off:]), nil
}

// TypeString returns the mnemonic of a question type, TYPE<n> when unknown.
func TypeString(qtype uint16) string {
	if s, ok := dns.TypeToString[qtype]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", qtype)
}

// ID returns the transaction ID of msg, 0 when msg is too short.
func ID(msg []byte) uint16 {
	if len(msg) < IDLen {
		return 0
	}
	return binary.BigEndian.Uint16(msg)
}

// SpliceReply prepends the transaction ID of query to payload, which must
// have had the resolver's own ID removed already.
func SpliceReply(query, payload []byte) []byte {
	reply := make([]byte, 0, IDLen+len(payload))
	reply = append(reply, query[:IDLen]...)
	return append(reply, payload...)
}

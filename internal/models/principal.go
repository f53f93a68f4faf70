package models

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// MaxPrincipalLength is the largest principal accepted, in bytes.
const MaxPrincipalLength = 29

const (
	selfAuthenticatingSuffix = 0x02
	anonymousSuffix          = 0x04
)

var (
	ErrEmptyPrincipal     = errors.New("principal is empty")
	ErrPrincipalTooLong   = fmt.Errorf("principal exceeds %d bytes", MaxPrincipalLength)
	ErrMalformedPrincipal = errors.New("malformed principal text")
	ErrPrincipalChecksum  = errors.New("principal checksum mismatch")
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is an opaque identity. Two principals are equal iff their bytes are
// equal, so the type can be compared with == and used as a map key.
type Principal struct {
	raw string
}

// AnonymousPrincipal is the identity of an unauthenticated caller.
var AnonymousPrincipal = Principal{raw: string([]byte{anonymousSuffix})}

// PrincipalFromBytes copies b into a new principal.
func PrincipalFromBytes(b []byte) (Principal, error) {
	if len(b) == 0 {
		return Principal{}, ErrEmptyPrincipal
	}
	if len(b) > MaxPrincipalLength {
		return Principal{}, ErrPrincipalTooLong
	}
	return Principal{raw: string(b)}, nil
}

// PrincipalFromPublicKey derives the self-authenticating principal of a
// DER-encoded public key.
func PrincipalFromPublicKey(der []byte) Principal {
	sum := sha256.Sum224(der)
	b := make([]byte, 0, len(sum)+1)
	b = append(b, sum[:]...)
	b = append(b, selfAuthenticatingSuffix)
	return Principal{raw: string(b)}
}

// ParsePrincipal decodes the dashed, checksummed textual form produced by String.
func ParsePrincipal(text string) (Principal, error) {
	if text == "" {
		return Principal{}, ErrEmptyPrincipal
	}
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedPrincipal, err)
	}
	if len(decoded) <= crc32.Size {
		return Principal{}, ErrMalformedPrincipal
	}

	p, err := PrincipalFromBytes(decoded[crc32.Size:])
	if err != nil {
		return Principal{}, err
	}
	if binary.BigEndian.Uint32(decoded[:crc32.Size]) != crc32.ChecksumIEEE(p.Bytes()) {
		return Principal{}, ErrPrincipalChecksum
	}
	// Reject non-canonical spellings (wrong grouping, upper case).
	if p.String() != text {
		return Principal{}, ErrMalformedPrincipal
	}
	return p, nil
}

// Bytes returns a copy of the raw identifier.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// IsZero reports whether p was never assigned.
func (p Principal) IsZero() bool {
	return p.raw == ""
}

// IsAnonymous reports whether p is the anonymous identity.
func (p Principal) IsAnonymous() bool {
	return p == AnonymousPrincipal
}

// String renders the principal as lowercase base32 of crc32||bytes in groups of five.
func (p Principal) String() string {
	if p.IsZero() {
		return ""
	}
	buf := make([]byte, crc32.Size, crc32.Size+len(p.raw))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE([]byte(p.raw)))
	buf = append(buf, p.raw...)
	encoded := strings.ToLower(principalEncoding.EncodeToString(buf))

	var sb strings.Builder
	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := min(i+5, len(encoded))
		sb.WriteString(encoded[i:end])
	}
	return sb.String()
}

func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

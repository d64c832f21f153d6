package ntp

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	Port       = 123
	ReplyLen   = 68  // 48-byte NTP header + 4-byte key id + 16-byte MD5 digest
	MaxReadLen = 120 // receive buffer; anything longer is noise anyway

	oldPasswordBit = 1 << 31
	checksumLen    = 16
	keyIDLen       = 4
)

// defaultPrefix is a mode 3 (client) NTPv3 header using the MS-SNTP MD5
// authenticator. Appending a 4-byte key id and a dummy digest yields a
// complete authenticated request.
const defaultPrefix = "db0011e9000000000001000000000000e1b8407debc7e50600000000000000000000000000000000e1b8428bffbfcd0a"

// DefaultTemplate is the query prefix used unless a caller supplies its own.
var DefaultTemplate = MustTemplate(defaultPrefix)

// Template is an immutable request prefix. The encoder appends the key id
// and zeroed digest to it.
type Template struct {
	prefix string // string keeps the bytes immutable once built
}

// NewTemplate copies b into a Template.
func NewTemplate(b []byte) Template {
	return Template{prefix: string(b)}
}

// ParseTemplate decodes a hex-encoded prefix.
func ParseTemplate(s string) (Template, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Template{}, fmt.Errorf("invalid template hex: %w", err)
	}
	return NewTemplate(b), nil
}

// MustTemplate is ParseTemplate that panics on error. For package-level constants.
func MustTemplate(s string) Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the prefix length in bytes.
func (t Template) Len() int { return len(t.prefix) }

// QueryLen is the total length of a request built from t.
func (t Template) QueryLen() int { return len(t.prefix) + keyIDLen + checksumLen }

// Query builds one request: prefix ++ LE32(rid ^ flag) ++ 16 zero bytes.
func (t Template) Query(rid, flag uint32) []byte {
	q := make([]byte, t.QueryLen())
	t.AppendQuery(q[:0], rid, flag)
	return q
}

// AppendQuery appends a request for rid to dst and returns the extended slice.
func (t Template) AppendQuery(dst []byte, rid, flag uint32) []byte {
	dst = append(dst, t.prefix...)
	dst = binary.LittleEndian.AppendUint32(dst, rid^flag)
	var zero [checksumLen]byte
	return append(dst, zero[:]...)
}

// KeyFlag returns the bit XORed into the key id. Set selects the previous
// machine password, clear selects the current one.
func KeyFlag(oldPassword bool) uint32 {
	if oldPassword {
		return oldPasswordBit
	}
	return 0
}

package ntp

import "encoding/binary"

// Reply field offsets.
const (
	offSalt  = 0
	offKeyID = 48
	offHash  = 52
)

// Reply is a decoded authenticated response.
type Reply struct {
	RID  uint32
	Hash [16]byte // MD5(NTOWFv1(password) || Salt)
	Salt [48]byte // the NTP header the server signed
}

// DecodeReply extracts the RID, digest and signed header from b.
// ok is false unless b is exactly ReplyLen bytes.
func DecodeReply(b []byte, flag uint32) (r Reply, ok bool) {
	if len(b) != ReplyLen {
		return Reply{}, false
	}
	copy(r.Salt[:], b[offSalt:offKeyID])
	r.RID = binary.LittleEndian.Uint32(b[offKeyID:offHash]) ^ flag
	copy(r.Hash[:], b[offHash:ReplyLen])
	return r, true
}

// EncodeReply is the inverse of DecodeReply. Used by fake servers in tests
// and by the capture tooling.
func EncodeReply(r Reply, flag uint32) []byte {
	b := make([]byte, 0, ReplyLen)
	b = append(b, r.Salt[:]...)
	b = binary.LittleEndian.AppendUint32(b, r.RID^flag)
	return append(b, r.Hash[:]...)
}

// QueryRID returns the key id carried by a request built from a template of
// prefixLen bytes. Servers read the same field.
func QueryRID(q []byte, prefixLen int, flag uint32) (uint32, bool) {
	if len(q) != prefixLen+keyIDLen+checksumLen {
		return 0, false
	}
	return binary.LittleEndian.Uint32(q[prefixLen:prefixLen+keyIDLen]) ^ flag, true
}

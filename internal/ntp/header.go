package ntp

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Header is the subset of the signed NTP header worth logging.
type Header struct {
	Leap      uint8
	Version   uint8
	Mode      uint8
	Stratum   uint8
	RefID     uint32
	Transmit  uint64
	Extension int // bytes beyond the 48-byte header
}

func (h Header) String() string {
	return fmt.Sprintf("v%d mode=%d stratum=%d leap=%d refid=%08x ext=%d",
		h.Version, h.Mode, h.Stratum, h.Leap, h.RefID, h.Extension)
}

// DescribeHeader decodes the leading NTP header of a datagram, whatever its
// length. Used for debug logging of replies and noise.
func DescribeHeader(b []byte) (Header, error) {
	var n layers.NTP
	if err := n.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return Header{}, err
	}
	return Header{
		Leap:      uint8(n.LeapIndicator),
		Version:   uint8(n.Version),
		Mode:      uint8(n.Mode),
		Stratum:   uint8(n.Stratum),
		RefID:     uint32(n.ReferenceID),
		Transmit:  uint64(n.TransmitTimestamp),
		Extension: len(n.ExtensionBytes),
	}, nil
}

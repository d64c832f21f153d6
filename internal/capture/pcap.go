// Package capture writes received datagrams to a pcap file so a harvest can
// be replayed or inspected in Wireshark later.
package capture

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snapLen = 65535

// Writer frames each datagram as raw IPv4/UDP. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	buf    gopacket.SerializeBuffer
	opts   gopacket.SerializeOptions
	now    func() time.Time
}

// Create truncates path and writes the pcap file header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes the pcap file header to out.
func NewWriter(out io.Writer) (*Writer, error) {
	pw := pcapgo.NewWriterNanos(out)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeRaw); err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	return &Writer{
		w:   pw,
		buf: gopacket.NewSerializeBuffer(),
		opts: gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		},
		now: time.Now,
	}, nil
}

// Record writes one datagram travelling from -> to.
func (w *Writer) Record(from, to net.Addr, payload []byte) error {
	src, sport := udpEndpoint(from)
	dst, dport := udpEndpoint(to)

	ip4 := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src,
		DstIP:    dst,
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(sport),
		DstPort: layers.UDPPort(dport),
	}
	udp.SetNetworkLayerForChecksum(&ip4)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Clear()
	if err := gopacket.SerializeLayers(w.buf, w.opts, &ip4, &udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("frame datagram: %w", err)
	}
	data := w.buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     w.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	return w.w.WritePacket(ci, data)
}

// Close closes the underlying file, if Create opened one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

func udpEndpoint(a net.Addr) (net.IP, int) {
	if ua, ok := a.(*net.UDPAddr); ok {
		if ip4 := ua.IP.To4(); ip4 != nil {
			return ip4, ua.Port
		}
		return net.IPv4zero.To4(), ua.Port
	}
	return net.IPv4zero.To4(), 0
}

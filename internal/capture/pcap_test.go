package capture

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func TestRecordRoundTrip(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	from := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 5), Port: 123}
	to := &net.UDPAddr{IP: net.IPv4zero, Port: 40000}
	payloads := [][]byte{bytes.Repeat([]byte{0x1c}, 68), []byte("noise")}
	for _, p := range payloads {
		if err := w.Record(from, to, p); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	r, err := pcapgo.NewReader(&out)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.LinkType() != layers.LinkTypeRaw {
		t.Fatalf("Expected raw link type, got %v", r.LinkType())
	}

	for i, want := range payloads {
		data, _, err := r.ReadPacketData()
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
		ip, _ := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		udp, _ := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if ip == nil || udp == nil {
			t.Fatalf("packet %d: missing IPv4/UDP layers", i)
		}
		if !ip.SrcIP.Equal(from.IP) {
			t.Errorf("packet %d: Expected src %v, got %v", i, from.IP, ip.SrcIP)
		}
		if udp.SrcPort != 123 || udp.DstPort != 40000 {
			t.Errorf("packet %d: Expected ports 123->40000, got %d->%d", i, udp.SrcPort, udp.DstPort)
		}
		if !bytes.Equal(udp.Payload, want) {
			t.Errorf("packet %d: payload mismatch", i)
		}
	}
	if _, _, err := r.ReadPacketData(); err != io.EOF {
		t.Errorf("Expected EOF after 2 packets, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.pcap")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Record(nil, nil, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Record with unknown addresses: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// 24-byte file header, 16-byte record header, 20+8+3 byte frame.
	if info.Size() != 24+16+31 {
		t.Errorf("Expected 71 bytes, got %d", info.Size())
	}
}

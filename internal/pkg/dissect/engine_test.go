package dissect

import (
	"net"
	"testing"
	"time"

	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var (
	testSrcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testDstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
	testTime   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(proto.NewRegistry(), cfg)
	require.NoError(t, err)
	return e
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func ethernet(t layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: t}
}

func ipv4(p layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Flags:    layers.IPv4DontFragment,
		Protocol: p,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
}

func udpFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	ip := ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 40000, DstPort: 40001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(layers.EthernetTypeIPv4), ip, udp, gopacket.Payload(payload))
}

func tcpFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	ip := ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: 40000,
		DstPort: 40002,
		Seq:     1000,
		Ack:     77,
		SYN:     true,
		ACK:     true,
		Window:  512,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(layers.EthernetTypeIPv4), ip, tcp, gopacket.Payload(payload))
}

func dissect(t *testing.T, e *Engine, data []byte, wire int) *proto.Tree {
	t.Helper()
	tree, err := e.Dissect(Frame{
		Number:     1,
		Timestamp:  testTime,
		Data:       data,
		WireLength: wire,
		LinkType:   layers.LinkTypeEthernet,
	})
	require.NoError(t, err)
	t.Cleanup(tree.Destroy)
	return tree
}

func topLevel(tree *proto.Tree) []string {
	var out []string
	for _, n := range tree.Root().Children() {
		out = append(out, n.Info().HField.Abbrev)
	}
	return out
}

func only(t *testing.T, tree *proto.Tree, abbrev string) *proto.FieldInfo {
	t.Helper()
	fis, err := tree.FindFieldsByAbbrev(abbrev)
	require.NoError(t, err)
	require.Len(t, fis, 1, abbrev)
	return fis[0]
}

func TestDissectUDP(t *testing.T) {
	e := newTestEngine(t, Config{})
	data := udpFrame(t, []byte("ping"))
	require.Len(t, data, 60, "ethernet pads to the minimum frame size")

	tree := dissect(t, e, data, 0)

	assert.Equal(t, []string{"frame", "eth", "ip", "udp", "data"}, topLevel(tree))
	assert.Equal(t, "eth:ip:udp:data", only(t, tree, "frame.protocols").Value.String())
	assert.True(t, only(t, tree, "frame.protocols").Generated())
	assert.Equal(t, "Frame 1: 60 bytes on wire (480 bits), 60 bytes captured (480 bits)",
		tree.Root().Children()[0].Label())

	assert.Equal(t, "Ethernet II, Src: 00:11:22:33:44:55, Dst: 66:77:88:99:aa:bb",
		tree.Root().Children()[1].Label())
	assert.Equal(t, "Type: IPv4 (0x0800)", only(t, tree, "eth.type").Label())

	ip := tree.Root().Children()[2]
	assert.Equal(t, "Internet Protocol Version 4, Src: 10.0.0.1, Dst: 10.0.0.2", ip.Label())
	assert.Equal(t, 14, ip.Info().AbsoluteStart())
	assert.Equal(t, 20, ip.Info().Length)
	assert.Equal(t, "Header Length: 5 (20 bytes)", only(t, tree, "ip.hdr_len").Label())
	assert.Equal(t, "Protocol: UDP (17)", only(t, tree, "ip.proto").Label())
	assert.Equal(t, "Don't fragment: Set", only(t, tree, "ip.flags.df").Label())
	assert.Equal(t, "More fragments: Not set", only(t, tree, "ip.flags.mf").Label())
	assert.Equal(t, "Total Length: 32", only(t, tree, "ip.len").Label())

	assert.Equal(t, "User Datagram Protocol, Src Port: 40000, Dst Port: 40001",
		tree.Root().Children()[3].Label())
	ports, err := tree.FindFieldsByAbbrev("udp.port")
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.True(t, ports[0].Hidden())
	assert.Equal(t, uint64(40000), ports[0].Value.Uinteger())
	assert.Equal(t, uint64(40001), ports[1].Value.Uinteger())

	payload := only(t, tree, "data.data")
	assert.Equal(t, []byte("ping"), payload.Value.Bytes())
	assert.Equal(t, 42, payload.AbsoluteStart())
	assert.Equal(t, "Data (4 bytes)", tree.Root().Children()[4].Label())

	padding := only(t, tree, "eth.padding")
	assert.Equal(t, 46, padding.AbsoluteStart())
	assert.Equal(t, 14, padding.Length)
}

func TestDissectTCP(t *testing.T) {
	e := newTestEngine(t, Config{})
	tree := dissect(t, e, tcpFrame(t, []byte("hello")), 0)

	assert.Equal(t, []string{"frame", "eth", "ip", "tcp", "data"}, topLevel(tree))
	assert.Equal(t, "Transmission Control Protocol, Src Port: 40000, Dst Port: 40002, Seq: 1000, Len: 5",
		tree.Root().Children()[3].Label())
	assert.Equal(t, "Flags: 0x012 (ACK, SYN)", only(t, tree, "tcp.flags").Label())
	assert.True(t, only(t, tree, "tcp.flags.syn").Value.Boolean())
	assert.False(t, only(t, tree, "tcp.flags.fin").Value.Boolean())
	assert.Equal(t, "Header Length: 5 (20 bytes)", only(t, tree, "tcp.hdr_len").Label())
	assert.Equal(t, uint64(5), only(t, tree, "tcp.len").Value.Uinteger())
	assert.Equal(t, uint64(77), only(t, tree, "tcp.ack").Value.Uinteger())
}

func TestDissectIPv6(t *testing.T) {
	e := newTestEngine(t, Config{})
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   32,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 40001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, ethernet(layers.EthernetTypeIPv6), ip, udp, gopacket.Payload([]byte("v6")))

	tree := dissect(t, e, data, 0)

	assert.Equal(t, []string{"frame", "eth", "ipv6", "udp", "data"}, topLevel(tree))
	assert.Equal(t, "Source Address: 2001:db8::1", only(t, tree, "ipv6.src").Label())
	assert.Equal(t, "Next Header: UDP (17)", only(t, tree, "ipv6.nxt").Label())
	assert.Equal(t, uint64(10), only(t, tree, "ipv6.plen").Value.Uinteger())
	addrs, err := tree.FindFieldsByAbbrev("ipv6.addr")
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
}

func TestDissectNonIPPayload(t *testing.T) {
	e := newTestEngine(t, Config{})
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   testSrcMAC,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 0, 0, 2},
	}
	tree := dissect(t, e, serialize(t, ethernet(layers.EthernetTypeARP), arp), 0)

	assert.Equal(t, []string{"frame", "eth", "data"}, topLevel(tree))
	assert.Equal(t, "Type: ARP (0x0806)", only(t, tree, "eth.type").Label())
	assert.Equal(t, uint64(46), only(t, tree, "data.len").Value.Uinteger())
}

func TestDissectTruncated(t *testing.T) {
	e := newTestEngine(t, Config{})
	full := udpFrame(t, []byte("ping"))
	data := full[:38]

	tree := dissect(t, e, data, len(full))

	assert.Equal(t, []string{"frame", "eth", "ip", "udp", "_ws.short"}, topLevel(tree))
	assert.Equal(t, "[Packet size limited during capture: UDP truncated]", tree.Root().Children()[4].Label())
	assert.Equal(t, "eth:ip:udp:_ws.short", only(t, tree, "frame.protocols").Value.String())
	assert.Equal(t, uint64(38), only(t, tree, "frame.cap_len").Value.Uinteger())
	assert.Equal(t, uint64(60), only(t, tree, "frame.len").Value.Uinteger())

	// Fields inside the captured bytes are still decoded.
	assert.Equal(t, uint64(40001), only(t, tree, "udp.dstport").Value.Uinteger())
	fis, err := tree.FindFieldsByAbbrev("udp.length")
	require.NoError(t, err)
	assert.Empty(t, fis)
}

func TestDissectMalformed(t *testing.T) {
	tests := []struct {
		name  string
		patch func(b []byte)
		want  []string
		label string
	}{
		{
			name:  "udp length beyond ip payload",
			patch: func(b []byte) { b[38], b[39] = 0x00, 0xff },
			want:  []string{"frame", "eth", "ip", "udp", "_ws.malformed"},
			label: "[Malformed Packet: UDP]",
		},
		{
			name:  "udp length below header",
			patch: func(b []byte) { b[38], b[39] = 0x00, 0x04 },
			want:  []string{"frame", "eth", "ip", "udp", "_ws.malformed"},
			label: "[Malformed Packet: UDP]",
		},
		{
			name:  "ip header length below minimum",
			patch: func(b []byte) { b[14] = 0x44 },
			want:  []string{"frame", "eth", "ip", "_ws.malformed"},
			label: "[Malformed Packet: IPv4]",
		},
		{
			name:  "ip total length beyond frame",
			patch: func(b []byte) { b[16], b[17] = 0x05, 0xdc },
			want:  []string{"frame", "eth", "ip", "_ws.malformed"},
			label: "[Malformed Packet: IPv4]",
		},
	}

	e := newTestEngine(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := udpFrame(t, []byte("ping"))
			tt.patch(data)

			tree := dissect(t, e, data, 0)

			assert.Equal(t, tt.want, topLevel(tree))
			last := tree.Root().Children()[len(tt.want)-1]
			assert.Equal(t, tt.label, last.Label())
			assert.True(t, last.Info().Generated())
		})
	}
}

func TestDissectRuntFrame(t *testing.T) {
	e := newTestEngine(t, Config{})
	tree := dissect(t, e, testDstMAC, 0)

	assert.Equal(t, []string{"frame", "_ws.malformed"}, topLevel(tree))
	assert.Equal(t, "[Malformed Packet: Ethernet]", tree.Root().Children()[1].Label())
}

func TestDissectPrimedFields(t *testing.T) {
	e := newTestEngine(t, Config{Prime: []string{"udp.port", "ip.addr"}})
	tree := dissect(t, e, udpFrame(t, []byte("ping")), 0)

	hf, err := e.Registry().LookupByName("udp.port")
	require.NoError(t, err)
	require.True(t, tree.IsPrimed(hf.ID))
	assert.Len(t, tree.FindFieldsByID(hf.ID), 2)

	hf, err = e.Registry().LookupByName("ip.addr")
	require.NoError(t, err)
	addrs := tree.FindFieldsByID(hf.ID)
	require.Len(t, addrs, 2)
	assert.Equal(t, "10.0.0.2", addrs[1].DisplayValue())
}

func TestNewRejectsUnknownPrime(t *testing.T) {
	_, err := New(proto.NewRegistry(), Config{Prime: []string{"udp.nope"}})
	assert.ErrorIs(t, err, proto.ErrFieldNotFound)
}

func TestNewClosesRegistry(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := New(reg, Config{})
	require.NoError(t, err)
	assert.True(t, reg.Closed())

	for _, abbrev := range []string{"frame", "eth", "ip", "ipv6", "udp", "tcp", "data", "_ws.malformed", "_ws.short"} {
		hf, err := reg.LookupByName(abbrev)
		require.NoError(t, err, abbrev)
		assert.True(t, hf.IsProtocol(), abbrev)
	}
}

func TestDissectItemLimit(t *testing.T) {
	e := newTestEngine(t, Config{MaxTreeItems: 8})
	tree, err := e.Dissect(Frame{Number: 7, Data: udpFrame(t, nil), LinkType: layers.LinkTypeEthernet})
	assert.ErrorIs(t, err, proto.ErrTooManyItems)
	assert.ErrorContains(t, err, "frame 7")
	assert.Nil(t, tree)
}

func TestDissectConcurrent(t *testing.T) {
	e := newTestEngine(t, Config{Visible: true})
	data := tcpFrame(t, []byte("concurrent"))

	var g errgroup.Group
	for i := 1; i <= 16; i++ {
		g.Go(func() error {
			tree, err := e.Dissect(Frame{Number: i, Data: data, LinkType: layers.LinkTypeEthernet})
			if err != nil {
				return err
			}
			defer tree.Destroy()
			fis, err := tree.FindFieldsByAbbrev("frame.number")
			if err != nil {
				return err
			}
			assert.Equal(t, uint64(i), fis[0].Value.Uinteger())
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

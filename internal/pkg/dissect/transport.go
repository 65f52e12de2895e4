package dissect

import (
	"fmt"
	"strings"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

const (
	udpHeaderLen    = 8
	tcpMinHeaderLen = 20
)

type udpDecoder struct {
	proto    proto.FieldID
	srcPort  proto.FieldID
	dstPort  proto.FieldID
	port     proto.FieldID
	length   proto.FieldID
	checksum proto.FieldID
	ett      proto.SubtreeKind
}

func (d *udpDecoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("User Datagram Protocol", "UDP", "udp")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.srcPort, Field: proto.HeaderField{
			Name: "Source Port", Abbrev: "udp.srcport", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.dstPort, Field: proto.HeaderField{
			Name: "Destination Port", Abbrev: "udp.dstport", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.port, Field: proto.HeaderField{
			Name: "Source or Destination Port", Abbrev: "udp.port", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.length, Field: proto.HeaderField{
			Name: "Length", Abbrev: "udp.length", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.checksum, Field: proto.HeaderField{
			Name: "Checksum", Abbrev: "udp.checksum", Type: ftypes.FTUint16, Display: proto.BaseHex,
		}},
	})
	reg.RegisterSubtrees(&d.ett)
}

func (d *udpDecoder) protocolID() proto.FieldID { return d.proto }

func (d *udpDecoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	item, err := st.addProtocol(d.proto, buf, 0, udpHeaderLen)
	if err != nil {
		return nil, err
	}
	a := &fieldAdder{parent: item.AddSubtree(d.ett), buf: buf}
	src := a.item(d.srcPort, 0, 2, proto.EncBigEndian)
	dst := a.item(d.dstPort, 2, 2, proto.EncBigEndian)
	a.hidden(d.port, 0, 2, proto.EncBigEndian)
	a.hidden(d.port, 2, 2, proto.EncBigEndian)
	ln := a.item(d.length, 4, 2, proto.EncBigEndian)
	a.item(d.checksum, 6, 2, proto.EncBigEndian)
	if a.err != nil {
		return nil, a.err
	}
	item.SetText(fmt.Sprintf("User Datagram Protocol, Src Port: %d, Dst Port: %d", uintOf(src), uintOf(dst)))

	length := int(uintOf(ln))
	if length < udpHeaderLen {
		return nil, fmt.Errorf("%w: UDP length %d", ErrMalformed, length)
	}
	return buf.Subset(udpHeaderLen, length-udpHeaderLen)
}

type tcpDecoder struct {
	proto    proto.FieldID
	srcPort  proto.FieldID
	dstPort  proto.FieldID
	port     proto.FieldID
	seq      proto.FieldID
	ack      proto.FieldID
	hdrLen   proto.FieldID
	flags    proto.FieldID
	flagBits []proto.FieldID
	window   proto.FieldID
	checksum proto.FieldID
	urgent   proto.FieldID
	options  proto.FieldID
	payload  proto.FieldID
	ett      proto.SubtreeKind
	ettFlags proto.SubtreeKind
}

func (d *tcpDecoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Transmission Control Protocol", "TCP", "tcp")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.srcPort, Field: proto.HeaderField{
			Name: "Source Port", Abbrev: "tcp.srcport", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.dstPort, Field: proto.HeaderField{
			Name: "Destination Port", Abbrev: "tcp.dstport", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.port, Field: proto.HeaderField{
			Name: "Source or Destination Port", Abbrev: "tcp.port", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.seq, Field: proto.HeaderField{
			Name: "Sequence Number", Abbrev: "tcp.seq", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
		{ID: &d.ack, Field: proto.HeaderField{
			Name: "Acknowledgment Number", Abbrev: "tcp.ack", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
		{ID: &d.hdrLen, Field: proto.HeaderField{
			Name: "Header Length", Abbrev: "tcp.hdr_len", Type: ftypes.FTUint8, Display: proto.BaseDec, Bitmask: 0xf0,
			Blurb: "Data offset in 32-bit words",
		}},
		{ID: &d.flags, Field: proto.HeaderField{
			Name: "Flags", Abbrev: "tcp.flags", Type: ftypes.FTUint16, Display: proto.BaseHex, Bitmask: 0x0fff,
		}},
		{ID: &d.window, Field: proto.HeaderField{
			Name: "Window", Abbrev: "tcp.window_size_value", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.checksum, Field: proto.HeaderField{
			Name: "Checksum", Abbrev: "tcp.checksum", Type: ftypes.FTUint16, Display: proto.BaseHex,
		}},
		{ID: &d.urgent, Field: proto.HeaderField{
			Name: "Urgent Pointer", Abbrev: "tcp.urgent_pointer", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.options, Field: proto.HeaderField{Name: "Options", Abbrev: "tcp.options", Type: ftypes.FTBytes}},
		{ID: &d.payload, Field: proto.HeaderField{
			Name: "TCP Segment Len", Abbrev: "tcp.len", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
	})

	d.flagBits = make([]proto.FieldID, len(flagNames))
	for i, f := range flagNames {
		abbrev := "tcp.flags." + strings.ToLower(f.name)
		d.flagBits[i] = reg.Register(proto.HeaderField{
			Name: f.name, Abbrev: abbrev, Type: ftypes.FTBoolean,
			BitWidth: 16, Bitmask: f.mask, Strings: setStrings,
		}, d.proto)
	}
	reg.RegisterSubtrees(&d.ett, &d.ettFlags)
}

func (d *tcpDecoder) protocolID() proto.FieldID { return d.proto }

func (d *tcpDecoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	item, err := st.addProtocol(d.proto, buf, 0, tcpMinHeaderLen)
	if err != nil {
		return nil, err
	}
	a := &fieldAdder{parent: item.AddSubtree(d.ett), buf: buf}
	src := a.item(d.srcPort, 0, 2, proto.EncBigEndian)
	dst := a.item(d.dstPort, 2, 2, proto.EncBigEndian)
	a.hidden(d.port, 0, 2, proto.EncBigEndian)
	a.hidden(d.port, 2, 2, proto.EncBigEndian)
	seq := a.item(d.seq, 4, 4, proto.EncBigEndian)
	a.item(d.ack, 8, 4, proto.EncBigEndian)
	hl := a.item(d.hdrLen, 12, 1, proto.EncBigEndian)
	if flags := a.item(d.flags, 12, 2, proto.EncBigEndian); flags != nil {
		fa := a.under(flags.AddSubtree(d.ettFlags))
		var set []string
		for i, id := range d.flagBits {
			if bit := fa.item(id, 12, 2, proto.EncBigEndian); bit != nil && bit.Info().Value.Boolean() {
				set = append(set, flagNames[i].name)
			}
		}
		a.merge(fa)
		if len(set) > 0 {
			flags.AppendText(" (" + strings.Join(set, ", ") + ")")
		}
	}
	a.item(d.window, 14, 2, proto.EncBigEndian)
	a.item(d.checksum, 16, 2, proto.EncBigEndian)
	a.item(d.urgent, 18, 2, proto.EncBigEndian)
	if a.err != nil {
		return nil, a.err
	}

	hdrLen := int(uintOf(hl)) * 4
	hl.AppendText(fmt.Sprintf(" (%d bytes)", hdrLen))
	if hdrLen < tcpMinHeaderLen {
		return nil, fmt.Errorf("%w: TCP header length %d", ErrMalformed, hdrLen)
	}
	if err := item.SetLen(hdrLen); err != nil {
		return nil, err
	}
	if hdrLen > tcpMinHeaderLen {
		a.item(d.options, tcpMinHeaderLen, hdrLen-tcpMinHeaderLen, proto.EncNA)
		if a.err != nil {
			return nil, a.err
		}
	}

	payload, err := buf.Subset(hdrLen, -1)
	if err != nil {
		return nil, err
	}
	segLen := payload.ReportedLength()
	n, err := item.AddUint(d.payload, nil, 0, 0, uint64(segLen))
	if err != nil {
		return nil, err
	}
	n.SetGenerated()

	item.SetText(fmt.Sprintf("Transmission Control Protocol, Src Port: %d, Dst Port: %d, Seq: %d, Len: %d",
		uintOf(src), uintOf(dst), uintOf(seq), segLen))
	return payload, nil
}

package dissect

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

const (
	ipv4MinHeaderLen = 20
	ipv6HeaderLen    = 40
)

type ipv4Decoder struct {
	proto      proto.FieldID
	version    proto.FieldID
	hdrLen     proto.FieldID
	dsfield    proto.FieldID
	totalLen   proto.FieldID
	id         proto.FieldID
	flags      proto.FieldID
	flagRB     proto.FieldID
	flagDF     proto.FieldID
	flagMF     proto.FieldID
	fragOffset proto.FieldID
	ttl        proto.FieldID
	protocol   proto.FieldID
	checksum   proto.FieldID
	src        proto.FieldID
	dst        proto.FieldID
	addr       proto.FieldID
	options    proto.FieldID
	ett        proto.SubtreeKind
	ettFlags   proto.SubtreeKind
}

func (d *ipv4Decoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Internet Protocol Version 4", "IPv4", "ip")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.version, Field: proto.HeaderField{
			Name: "Version", Abbrev: "ip.version", Type: ftypes.FTUint8, Display: proto.BaseDec, Bitmask: 0xf0,
		}},
		{ID: &d.hdrLen, Field: proto.HeaderField{
			Name: "Header Length", Abbrev: "ip.hdr_len", Type: ftypes.FTUint8, Display: proto.BaseDec, Bitmask: 0x0f,
			Blurb: "Header length in 32-bit words",
		}},
		{ID: &d.dsfield, Field: proto.HeaderField{
			Name: "Differentiated Services Field", Abbrev: "ip.dsfield", Type: ftypes.FTUint8, Display: proto.BaseHex,
		}},
		{ID: &d.totalLen, Field: proto.HeaderField{
			Name: "Total Length", Abbrev: "ip.len", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.id, Field: proto.HeaderField{
			Name: "Identification", Abbrev: "ip.id", Type: ftypes.FTUint16, Display: proto.BaseHexDec,
		}},
		{ID: &d.flags, Field: proto.HeaderField{
			Name: "Flags", Abbrev: "ip.flags", Type: ftypes.FTUint8, Display: proto.BaseHex, Bitmask: 0xe0,
		}},
		{ID: &d.flagRB, Field: proto.HeaderField{
			Name: "Reserved bit", Abbrev: "ip.flags.rb", Type: ftypes.FTBoolean, BitWidth: 8, Bitmask: 0x80,
			Strings: setStrings,
		}},
		{ID: &d.flagDF, Field: proto.HeaderField{
			Name: "Don't fragment", Abbrev: "ip.flags.df", Type: ftypes.FTBoolean, BitWidth: 8, Bitmask: 0x40,
			Strings: setStrings,
		}},
		{ID: &d.flagMF, Field: proto.HeaderField{
			Name: "More fragments", Abbrev: "ip.flags.mf", Type: ftypes.FTBoolean, BitWidth: 8, Bitmask: 0x20,
			Strings: setStrings,
		}},
		{ID: &d.fragOffset, Field: proto.HeaderField{
			Name: "Fragment Offset", Abbrev: "ip.frag_offset", Type: ftypes.FTUint16, Display: proto.BaseDec, Bitmask: 0x1fff,
			Blurb: "Fragment offset in 8-byte units",
		}},
		{ID: &d.ttl, Field: proto.HeaderField{
			Name: "Time to Live", Abbrev: "ip.ttl", Type: ftypes.FTUint8, Display: proto.BaseDec,
		}},
		{ID: &d.protocol, Field: proto.HeaderField{
			Name: "Protocol", Abbrev: "ip.proto", Type: ftypes.FTUint8, Display: proto.BaseDec,
			Strings: ipProtocolStrings(),
		}},
		{ID: &d.checksum, Field: proto.HeaderField{
			Name: "Header Checksum", Abbrev: "ip.checksum", Type: ftypes.FTUint16, Display: proto.BaseHex,
		}},
		{ID: &d.src, Field: proto.HeaderField{Name: "Source Address", Abbrev: "ip.src", Type: ftypes.FTIPv4}},
		{ID: &d.dst, Field: proto.HeaderField{Name: "Destination Address", Abbrev: "ip.dst", Type: ftypes.FTIPv4}},
		{ID: &d.addr, Field: proto.HeaderField{Name: "Source or Destination Address", Abbrev: "ip.addr", Type: ftypes.FTIPv4}},
		{ID: &d.options, Field: proto.HeaderField{Name: "Options", Abbrev: "ip.options", Type: ftypes.FTBytes}},
	})
	reg.RegisterSubtrees(&d.ett, &d.ettFlags)
}

func (d *ipv4Decoder) protocolID() proto.FieldID { return d.proto }

func (d *ipv4Decoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	item, err := st.addProtocol(d.proto, buf, 0, ipv4MinHeaderLen)
	if err != nil {
		return nil, err
	}
	a := &fieldAdder{parent: item.AddSubtree(d.ett), buf: buf}

	a.item(d.version, 0, 1, proto.EncBigEndian)
	hl := a.item(d.hdrLen, 0, 1, proto.EncBigEndian)
	a.item(d.dsfield, 1, 1, proto.EncBigEndian)
	tl := a.item(d.totalLen, 2, 2, proto.EncBigEndian)
	a.item(d.id, 4, 2, proto.EncBigEndian)
	if flags := a.item(d.flags, 6, 1, proto.EncBigEndian); flags != nil {
		fa := a.under(flags.AddSubtree(d.ettFlags))
		fa.item(d.flagRB, 6, 1, proto.EncBigEndian)
		fa.item(d.flagDF, 6, 1, proto.EncBigEndian)
		fa.item(d.flagMF, 6, 1, proto.EncBigEndian)
		a.merge(fa)
	}
	a.item(d.fragOffset, 6, 2, proto.EncBigEndian)
	a.item(d.ttl, 8, 1, proto.EncBigEndian)
	a.item(d.protocol, 9, 1, proto.EncBigEndian)
	a.item(d.checksum, 10, 2, proto.EncBigEndian)
	src := a.item(d.src, 12, 4, proto.EncNA)
	a.hidden(d.addr, 12, 4, proto.EncNA)
	dst := a.item(d.dst, 16, 4, proto.EncNA)
	a.hidden(d.addr, 16, 4, proto.EncNA)
	if a.err != nil {
		return nil, a.err
	}

	hdrLen := int(uintOf(hl)) * 4
	hl.AppendText(fmt.Sprintf(" (%d bytes)", hdrLen))
	if hdrLen < ipv4MinHeaderLen {
		return nil, fmt.Errorf("%w: IPv4 header length %d", ErrMalformed, hdrLen)
	}
	totalLen := int(uintOf(tl))
	if totalLen < hdrLen {
		return nil, fmt.Errorf("%w: IPv4 total length %d below header length %d", ErrMalformed, totalLen, hdrLen)
	}
	if err := item.SetLen(hdrLen); err != nil {
		return nil, err
	}
	if hdrLen > ipv4MinHeaderLen {
		a.item(d.options, ipv4MinHeaderLen, hdrLen-ipv4MinHeaderLen, proto.EncNA)
		if a.err != nil {
			return nil, a.err
		}
	}
	item.SetText(fmt.Sprintf("Internet Protocol Version 4, Src: %s, Dst: %s", display(src), display(dst)))

	payload, err := buf.Subset(hdrLen, totalLen-hdrLen)
	if err != nil {
		return nil, err
	}
	if err := st.addPadding(buf, totalLen); err != nil {
		return nil, err
	}
	return payload, nil
}

type ipv6Decoder struct {
	proto   proto.FieldID
	version proto.FieldID
	tclass  proto.FieldID
	flow    proto.FieldID
	plen    proto.FieldID
	next    proto.FieldID
	hlim    proto.FieldID
	src     proto.FieldID
	dst     proto.FieldID
	addr    proto.FieldID
	ett     proto.SubtreeKind
}

func (d *ipv6Decoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Internet Protocol Version 6", "IPv6", "ipv6")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.version, Field: proto.HeaderField{
			Name: "Version", Abbrev: "ipv6.version", Type: ftypes.FTUint8, Display: proto.BaseDec, Bitmask: 0xf0,
		}},
		{ID: &d.tclass, Field: proto.HeaderField{
			Name: "Traffic Class", Abbrev: "ipv6.tclass", Type: ftypes.FTUint32, Display: proto.BaseHex, Bitmask: 0x0ff00000,
		}},
		{ID: &d.flow, Field: proto.HeaderField{
			Name: "Flow Label", Abbrev: "ipv6.flow", Type: ftypes.FTUint32, Display: proto.BaseHex, Bitmask: 0x000fffff,
		}},
		{ID: &d.plen, Field: proto.HeaderField{
			Name: "Payload Length", Abbrev: "ipv6.plen", Type: ftypes.FTUint16, Display: proto.BaseDec,
		}},
		{ID: &d.next, Field: proto.HeaderField{
			Name: "Next Header", Abbrev: "ipv6.nxt", Type: ftypes.FTUint8, Display: proto.BaseDec,
			Strings: ipProtocolStrings(),
		}},
		{ID: &d.hlim, Field: proto.HeaderField{
			Name: "Hop Limit", Abbrev: "ipv6.hlim", Type: ftypes.FTUint8, Display: proto.BaseDec,
		}},
		{ID: &d.src, Field: proto.HeaderField{Name: "Source Address", Abbrev: "ipv6.src", Type: ftypes.FTIPv6}},
		{ID: &d.dst, Field: proto.HeaderField{Name: "Destination Address", Abbrev: "ipv6.dst", Type: ftypes.FTIPv6}},
		{ID: &d.addr, Field: proto.HeaderField{Name: "Source or Destination Address", Abbrev: "ipv6.addr", Type: ftypes.FTIPv6}},
	})
	reg.RegisterSubtrees(&d.ett)
}

func (d *ipv6Decoder) protocolID() proto.FieldID { return d.proto }

func (d *ipv6Decoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	item, err := st.addProtocol(d.proto, buf, 0, ipv6HeaderLen)
	if err != nil {
		return nil, err
	}
	a := &fieldAdder{parent: item.AddSubtree(d.ett), buf: buf}

	a.item(d.version, 0, 1, proto.EncBigEndian)
	a.item(d.tclass, 0, 4, proto.EncBigEndian)
	a.item(d.flow, 0, 4, proto.EncBigEndian)
	pl := a.item(d.plen, 4, 2, proto.EncBigEndian)
	a.item(d.next, 6, 1, proto.EncBigEndian)
	a.item(d.hlim, 7, 1, proto.EncBigEndian)
	src := a.item(d.src, 8, 16, proto.EncNA)
	a.hidden(d.addr, 8, 16, proto.EncNA)
	dst := a.item(d.dst, 24, 16, proto.EncNA)
	a.hidden(d.addr, 24, 16, proto.EncNA)
	if a.err != nil {
		return nil, a.err
	}
	item.SetText(fmt.Sprintf("Internet Protocol Version 6, Src: %s, Dst: %s", display(src), display(dst)))

	// A zero payload length announces a jumbogram; its length is carried
	// in a hop-by-hop option.
	plen := int(uintOf(pl))
	if plen == 0 {
		return buf.Subset(ipv6HeaderLen, -1)
	}
	payload, err := buf.Subset(ipv6HeaderLen, plen)
	if err != nil {
		return nil, err
	}
	if err := st.addPadding(buf, ipv6HeaderLen+plen); err != nil {
		return nil, err
	}
	return payload, nil
}

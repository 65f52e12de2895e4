package dissect

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

const ethHeaderLen = 14

type ethDecoder struct {
	proto   proto.FieldID
	dst     proto.FieldID
	src     proto.FieldID
	addr    proto.FieldID
	typ     proto.FieldID
	padding proto.FieldID
	ett     proto.SubtreeKind
}

func (d *ethDecoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Ethernet II", "Ethernet", "eth")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.dst, Field: proto.HeaderField{Name: "Destination", Abbrev: "eth.dst", Type: ftypes.FTEther}},
		{ID: &d.src, Field: proto.HeaderField{Name: "Source", Abbrev: "eth.src", Type: ftypes.FTEther}},
		{ID: &d.addr, Field: proto.HeaderField{
			Name: "Address", Abbrev: "eth.addr", Type: ftypes.FTEther,
			Blurb: "Source or Destination Hardware Address",
		}},
		{ID: &d.typ, Field: proto.HeaderField{
			Name: "Type", Abbrev: "eth.type", Type: ftypes.FTUint16, Display: proto.BaseHex,
			Strings: etherTypeStrings(),
		}},
		{ID: &d.padding, Field: proto.HeaderField{Name: "Padding", Abbrev: "eth.padding", Type: ftypes.FTBytes}},
	})
	reg.RegisterSubtrees(&d.ett)
}

func (d *ethDecoder) protocolID() proto.FieldID { return d.proto }

func (d *ethDecoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	item, err := st.addProtocol(d.proto, buf, 0, ethHeaderLen)
	if err != nil {
		return nil, err
	}
	st.eth = item
	st.padding = d.padding

	a := &fieldAdder{parent: item.AddSubtree(d.ett), buf: buf}
	dst := a.item(d.dst, 0, 6, proto.EncNA)
	a.hidden(d.addr, 0, 6, proto.EncNA)
	src := a.item(d.src, 6, 6, proto.EncNA)
	a.hidden(d.addr, 6, 6, proto.EncNA)
	a.item(d.typ, 12, 2, proto.EncBigEndian)
	if a.err != nil {
		return nil, a.err
	}

	item.SetText(fmt.Sprintf("Ethernet II, Src: %s, Dst: %s", display(src), display(dst)))
	return buf.Subset(ethHeaderLen, -1)
}

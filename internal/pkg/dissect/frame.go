package dissect

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
)

// frameDecoder adds the capture metadata every tree starts with.
type frameDecoder struct {
	proto     proto.FieldID
	time      proto.FieldID
	number    proto.FieldID
	length    proto.FieldID
	capLength proto.FieldID
	protocols proto.FieldID
	ett       proto.SubtreeKind
}

func (d *frameDecoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Frame", "Frame", "frame")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.time, Field: proto.HeaderField{
			Name: "Arrival Time", Abbrev: "frame.time", Type: ftypes.FTAbsoluteTime,
			Blurb: "Capture timestamp of the frame",
		}},
		{ID: &d.number, Field: proto.HeaderField{
			Name: "Frame Number", Abbrev: "frame.number", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
		{ID: &d.length, Field: proto.HeaderField{
			Name: "Frame Length", Abbrev: "frame.len", Type: ftypes.FTUint32, Display: proto.BaseDec,
			Blurb: "Length of the frame on the wire",
		}},
		{ID: &d.capLength, Field: proto.HeaderField{
			Name: "Capture Length", Abbrev: "frame.cap_len", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
		{ID: &d.protocols, Field: proto.HeaderField{
			Name: "Protocols in frame", Abbrev: "frame.protocols", Type: ftypes.FTString,
		}},
	})
	reg.RegisterSubtrees(&d.ett)
}

func (d *frameDecoder) decode(st *frameState) error {
	wire, captured := st.buf.ReportedLength(), st.buf.CapturedLength()

	item, err := st.tree.Root().AddProtocol(d.proto, st.buf, 0, wire)
	if err != nil {
		return err
	}
	item.SetText(fmt.Sprintf("Frame %d: %d bytes on wire (%d bits), %d bytes captured (%d bits)",
		st.frame.Number, wire, wire*8, captured, captured*8))
	st.frameNode = item.AddSubtree(d.ett)

	if _, err := st.frameNode.AddTime(d.time, nil, 0, 0, st.frame.Timestamp.UTC()); err != nil {
		return err
	}
	if _, err := st.frameNode.AddUint(d.number, nil, 0, 0, uint64(st.frame.Number)); err != nil {
		return err
	}
	if _, err := st.frameNode.AddUint(d.length, nil, 0, 0, uint64(wire)); err != nil {
		return err
	}
	_, err = st.frameNode.AddUint(d.capLength, nil, 0, 0, uint64(captured))
	return err
}

// finish records the protocol stack once the frame is fully decoded.
func (d *frameDecoder) finish(st *frameState, stack string) error {
	n, err := st.frameNode.AddString(d.protocols, nil, 0, 0, stack)
	if err != nil {
		return err
	}
	n.SetGenerated()
	return nil
}

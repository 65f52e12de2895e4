package dissect

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

// dataDecoder takes whatever payload no other decoder claims.
type dataDecoder struct {
	proto  proto.FieldID
	data   proto.FieldID
	length proto.FieldID
	ett    proto.SubtreeKind
}

func (d *dataDecoder) register(reg *proto.Registry) {
	d.proto = reg.RegisterProtocol("Data", "Data", "data")
	reg.RegisterFields(d.proto, []proto.FieldRegistration{
		{ID: &d.data, Field: proto.HeaderField{Name: "Data", Abbrev: "data.data", Type: ftypes.FTBytes}},
		{ID: &d.length, Field: proto.HeaderField{
			Name: "Length", Abbrev: "data.len", Type: ftypes.FTUint32, Display: proto.BaseDec,
		}},
	})
	reg.RegisterSubtrees(&d.ett)
}

func (d *dataDecoder) protocolID() proto.FieldID { return d.proto }

func (d *dataDecoder) decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error) {
	size := buf.ReportedLength()
	if size == 0 {
		return nil, nil
	}
	item, err := st.addProtocol(d.proto, buf, 0, size)
	if err != nil {
		return nil, err
	}
	item.SetText(fmt.Sprintf("Data (%d bytes)", size))

	tree := item.AddSubtree(d.ett)
	if _, err := tree.AddItem(d.data, buf, 0, -1, proto.EncNA); err != nil {
		return nil, err
	}
	n, err := tree.AddUint(d.length, nil, 0, 0, uint64(size))
	if err != nil {
		return nil, err
	}
	n.SetGenerated()

	if buf.CapturedLength() < size {
		_, err := buf.Ensure(0, size)
		return nil, err
	}
	return nil, nil
}

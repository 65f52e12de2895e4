package dissect

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

// expertDecoder adds the markers for frames that could not be decoded in
// full.
type expertDecoder struct {
	malformedProto proto.FieldID
	shortProto     proto.FieldID
}

func (d *expertDecoder) register(reg *proto.Registry) {
	d.malformedProto = reg.RegisterProtocol("Malformed Packet", "Malformed", "_ws.malformed")
	d.shortProto = reg.RegisterProtocol("Packet size limited during capture", "Short", "_ws.short")
}

// malformed marks a frame whose data contradicts its own headers.
func (d *expertDecoder) malformed(st *frameState, buf *tvb.Buffer, layer string) error {
	return d.mark(st, d.malformedProto, buf, fmt.Sprintf("[Malformed Packet: %s]", layer))
}

// short marks a frame cut off by the capture's snapshot length.
func (d *expertDecoder) short(st *frameState, buf *tvb.Buffer, layer string) error {
	return d.mark(st, d.shortProto, buf, fmt.Sprintf("[Packet size limited during capture: %s truncated]", layer))
}

func (d *expertDecoder) mark(st *frameState, id proto.FieldID, buf *tvb.Buffer, text string) error {
	n, err := st.addProtocol(id, buf, 0, 0)
	if err != nil {
		return err
	}
	n.SetText(text).SetGenerated()
	return nil
}

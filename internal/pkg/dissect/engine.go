// Package dissect turns captured frames into protocol trees.
//
// gopacket identifies the sequence of layers in a frame. Each layer is
// then decoded field by field from a tvb.Buffer into a proto.Tree, so the
// tree records exact byte ranges and reports truncated or malformed data
// instead of dropping it.
package dissect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/endorses/lcdissect/internal/pkg/constants"
	"github.com/endorses/lcdissect/internal/pkg/logger"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrMalformed marks header values no valid frame can carry, such as a
// header length shorter than the fixed header.
var ErrMalformed = errors.New("malformed")

// Frame is one captured record.
type Frame struct {
	Number     int
	Timestamp  time.Time
	Data       []byte
	WireLength int // 0 means len(Data)
	LinkType   layers.LinkType
}

// decoder decodes one protocol layer. buf starts at the layer's first
// byte; the returned buffer holds the layer's payload.
type decoder interface {
	register(reg *proto.Registry)
	protocolID() proto.FieldID
	decode(st *frameState, buf *tvb.Buffer) (*tvb.Buffer, error)
}

// Config tunes an Engine.
type Config struct {
	// MaxTreeItems caps the items of one tree; 0 selects the default.
	MaxTreeItems int
	// Visible makes trees render labels eagerly.
	Visible bool
	// Prime lists field abbreviations to index in every tree.
	Prime []string
}

// Engine dissects frames. It is safe for concurrent use once created.
type Engine struct {
	reg      *proto.Registry
	cfg      Config
	prime    []proto.FieldID
	frame    *frameDecoder
	data     *dataDecoder
	expert   *expertDecoder
	decoders map[gopacket.LayerType]decoder
}

// New registers the built-in decoders into reg, closes it and returns an
// engine using it. reg must still be open.
func New(reg *proto.Registry, cfg Config) (*Engine, error) {
	if cfg.MaxTreeItems <= 0 {
		cfg.MaxTreeItems = constants.DefaultMaxTreeItems
	}
	e := &Engine{
		reg:    reg,
		cfg:    cfg,
		frame:  &frameDecoder{},
		data:   &dataDecoder{},
		expert: &expertDecoder{},
		decoders: map[gopacket.LayerType]decoder{
			layers.LayerTypeEthernet: &ethDecoder{},
			layers.LayerTypeIPv4:     &ipv4Decoder{},
			layers.LayerTypeIPv6:     &ipv6Decoder{},
			layers.LayerTypeUDP:      &udpDecoder{},
			layers.LayerTypeTCP:      &tcpDecoder{},
		},
	}

	e.frame.register(reg)
	for _, lt := range []gopacket.LayerType{
		layers.LayerTypeEthernet,
		layers.LayerTypeIPv4,
		layers.LayerTypeIPv6,
		layers.LayerTypeUDP,
		layers.LayerTypeTCP,
	} {
		e.decoders[lt].register(reg)
	}
	e.data.register(reg)
	e.expert.register(reg)
	reg.Close()

	for _, abbrev := range cfg.Prime {
		hf, err := reg.LookupByName(abbrev)
		if err != nil {
			return nil, fmt.Errorf("prime %s: %w", abbrev, err)
		}
		for ; hf != nil; hf = hf.SameNameNext() {
			e.prime = append(e.prime, hf.ID)
		}
	}
	return e, nil
}

// Registry returns the engine's field registry.
func (e *Engine) Registry() *proto.Registry {
	return e.reg
}

// Dissect builds the protocol tree of f. Truncated and malformed frames
// still yield a tree, marked with an expert item. An error is returned only
// when the tree could not be built, e.g. when it exceeds its item limit;
// the partial tree is destroyed in that case.
func (e *Engine) Dissect(f Frame) (*proto.Tree, error) {
	tree := proto.NewTree(e.reg,
		proto.WithMaxItems(e.cfg.MaxTreeItems),
		proto.WithVisible(e.cfg.Visible))
	for _, id := range e.prime {
		tree.PrimeFieldID(id)
	}

	wire := f.WireLength
	if wire == 0 {
		wire = len(f.Data)
	}
	st := &frameState{
		tree:  tree,
		frame: f,
		buf:   tvb.NewReal(f.Data, wire),
	}

	if err := e.dissectLayers(st); err != nil {
		tree.Destroy()
		return nil, fmt.Errorf("frame %d: %w", f.Number, err)
	}
	return tree, nil
}

func (e *Engine) dissectLayers(st *frameState) error {
	if err := e.frame.decode(st); err != nil {
		return err
	}

	pkt := gopacket.NewPacket(st.frame.Data, st.frame.LinkType, gopacket.DecodeOptions{NoCopy: true})
	cur := st.buf
	next := st.frame.LinkType.LayerType()
	done := false

	for _, l := range pkt.Layers() {
		lt := l.LayerType()
		if _, failed := l.(*gopacket.DecodeFailure); failed {
			lt = next
		}
		dec, ok := e.decoders[lt]
		if !ok {
			dec = e.data
		}

		payload, err := e.decodeLayer(st, dec, cur)
		if err != nil {
			return err
		}
		if dec == e.data || payload == nil {
			done = true
			break
		}
		cur = payload

		if nl, ok := l.(interface{ NextLayerType() gopacket.LayerType }); ok {
			next = nl.NextLayerType()
		} else {
			next = gopacket.LayerTypeZero
		}
	}

	// gopacket stops early when it fails on a layer the core decoded in
	// full; the rest is shown as data.
	if !done && cur != st.buf {
		if _, err := e.decodeLayer(st, e.data, cur); err != nil {
			return err
		}
	}

	return e.frame.finish(st, st.stack())
}

// decodeLayer runs dec and converts decoding failures into expert items.
// A nil payload with a nil error means decoding stopped.
func (e *Engine) decodeLayer(st *frameState, dec decoder, buf *tvb.Buffer) (*tvb.Buffer, error) {
	payload, err := dec.decode(st, buf)
	if err != nil {
		return nil, e.markError(st, dec, buf, err)
	}
	return payload, nil
}

// markError records a decoding failure in the tree. Malformed data and
// data cut off by the capture become expert items; anything else aborts
// the frame.
func (e *Engine) markError(st *frameState, dec decoder, buf *tvb.Buffer, err error) error {
	layer := e.reg.LookupByID(dec.protocolID()).ShortName
	switch {
	case errors.Is(err, tvb.ErrReportedBounds), errors.Is(err, ErrMalformed):
		logger.Debug("Malformed frame", "frame", st.frame.Number, "layer", layer, "error", err)
		return e.expert.malformed(st, buf, layer)
	case errors.Is(err, tvb.ErrBounds):
		logger.Debug("Truncated frame", "frame", st.frame.Number, "layer", layer, "error", err)
		return e.expert.short(st, buf, layer)
	default:
		return err
	}
}

// frameState is the decoding state of one frame.
type frameState struct {
	tree      *proto.Tree
	frame     Frame
	buf       *tvb.Buffer
	frameNode *proto.Node
	eth       *proto.Node
	padding   proto.FieldID
	protocols []*proto.HeaderField
}

// addProtocol adds a protocol item at the top level of the tree and records
// it in the frame's protocol list.
func (st *frameState) addProtocol(id proto.FieldID, buf *tvb.Buffer, start, length int) (*proto.Node, error) {
	n, err := st.tree.Root().AddProtocol(id, buf, start, length)
	if err != nil {
		return nil, err
	}
	st.protocols = append(st.protocols, n.Info().HField)
	return n, nil
}

// stack joins the abbreviations of the frame's protocols, outermost first.
func (st *frameState) stack() string {
	names := make([]string, len(st.protocols))
	for i, hf := range st.protocols {
		names[i] = hf.Abbrev
	}
	return strings.Join(names, ":")
}

// addPadding records the bytes of buf from offset on as Ethernet padding.
// It does nothing when the frame has no Ethernet header.
func (st *frameState) addPadding(buf *tvb.Buffer, from int) error {
	if st.eth == nil || from >= buf.CapturedLength() {
		return nil
	}
	_, err := st.eth.AddItem(st.padding, buf, from, -1, proto.EncNA)
	return err
}

// fieldAdder adds items under one parent and keeps the first error, so a
// decoder can add a run of fields and check once.
type fieldAdder struct {
	parent *proto.Node
	buf    *tvb.Buffer
	err    error
}

func (a *fieldAdder) item(id proto.FieldID, start, length int, enc proto.Encoding) *proto.Node {
	if a.err != nil {
		return nil
	}
	n, err := a.parent.AddItem(id, a.buf, start, length, enc)
	a.err = err
	return n
}

func (a *fieldAdder) hidden(id proto.FieldID, start, length int, enc proto.Encoding) {
	if n := a.item(id, start, length, enc); n != nil {
		n.SetHidden()
	}
}

func (a *fieldAdder) under(n *proto.Node) *fieldAdder {
	return &fieldAdder{parent: n, buf: a.buf, err: a.err}
}

func (a *fieldAdder) merge(b *fieldAdder) {
	if a.err == nil {
		a.err = b.err
	}
}

func display(n *proto.Node) string {
	if n == nil {
		return ""
	}
	return n.Info().DisplayValue()
}

func uintOf(n *proto.Node) uint64 {
	if n == nil {
		return 0
	}
	return n.Info().Value.Uinteger()
}

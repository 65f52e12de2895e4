package proto

import (
	"errors"
	"time"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

// AddItem decodes the field id from buf[start, start+length) and appends
// it as the last child of n. A length of -1 extends to the end of buf.
//
// A range outside buf is reported as a *tvb.BoundsError and nothing is
// added. Protocol and label items may extend past the captured bytes as
// long as they stay inside the reported length. A length that cannot hold
// the field's category panics with *ContractError.
func (n *Node) AddItem(id FieldID, buf *tvb.Buffer, start, length int, enc Encoding) (*Node, error) {
	t := n.live("add item")
	hf := t.reg.LookupByID(id)
	if err := t.reserve(); err != nil {
		return nil, err
	}
	if buf == nil {
		contractViolation("add item", hf.Abbrev, "nil buffer")
	}
	fv, length, err := decodeValue(hf, buf, start, length, enc)
	if err != nil {
		return nil, err
	}
	return n.attach(hf, fv, buf, start, length, enc), nil
}

// AddProtocol adds a protocol item covering buf[start, start+length).
func (n *Node) AddProtocol(id FieldID, buf *tvb.Buffer, start, length int) (*Node, error) {
	if hf := n.live("add protocol").reg.LookupByID(id); hf.Type != ftypes.FTProtocol {
		contractViolation("add protocol", hf.Abbrev, "field is %s", hf.Type)
	}
	return n.AddItem(id, buf, start, length, EncNA)
}

// AddUint adds an unsigned integer or boolean item with an explicit value.
func (n *Node) AddUint(id FieldID, buf *tvb.Buffer, start, length int, v uint64) (*Node, error) {
	return n.addValue("add uint", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if !fv.Type().IsUnsigned() && hf.Type != ftypes.FTBoolean {
			return false
		}
		fv.SetUinteger(v)
		return true
	})
}

// AddInt adds a signed integer item with an explicit value.
func (n *Node) AddInt(id FieldID, buf *tvb.Buffer, start, length int, v int64) (*Node, error) {
	return n.addValue("add int", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if !fv.Type().IsInteger() || fv.Type().IsUnsigned() {
			return false
		}
		fv.SetSinteger(v)
		return true
	})
}

// AddBoolean adds a boolean item with an explicit value.
func (n *Node) AddBoolean(id FieldID, buf *tvb.Buffer, start, length int, v bool) (*Node, error) {
	return n.addValue("add boolean", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if hf.Type != ftypes.FTBoolean {
			return false
		}
		fv.SetBoolean(v)
		return true
	})
}

// AddString adds a text item with an explicit value.
func (n *Node) AddString(id FieldID, buf *tvb.Buffer, start, length int, s string) (*Node, error) {
	return n.addValue("add string", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if !fv.Type().IsString() {
			return false
		}
		fv.SetString(s)
		return true
	})
}

// AddBytes adds a byte-oriented item with an explicit value.
func (n *Node) AddBytes(id FieldID, buf *tvb.Buffer, start, length int, b []byte) (*Node, error) {
	return n.addValue("add bytes", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		switch hf.Type {
		case ftypes.FTBytes, ftypes.FTProtocol, ftypes.FTEther, ftypes.FTIPv4, ftypes.FTIPv6, ftypes.FTGUID:
		default:
			return false
		}
		if size := fv.Type().WireSize; size > 0 && len(b) != size {
			contractViolation("add bytes", hf.Abbrev, "%d bytes for %s", len(b), hf.Type)
		}
		fv.SetBytes(b)
		return true
	})
}

// AddTime adds an absolute time item with an explicit value.
func (n *Node) AddTime(id FieldID, buf *tvb.Buffer, start, length int, ts time.Time) (*Node, error) {
	return n.addValue("add time", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if hf.Type != ftypes.FTAbsoluteTime {
			return false
		}
		fv.SetTime(ts)
		return true
	})
}

// AddDuration adds a relative time item with an explicit value.
func (n *Node) AddDuration(id FieldID, buf *tvb.Buffer, start, length int, d time.Duration) (*Node, error) {
	return n.addValue("add duration", id, buf, start, length, func(hf *HeaderField, fv *ftypes.FValue) bool {
		if hf.Type != ftypes.FTRelativeTime {
			return false
		}
		fv.SetDuration(d)
		return true
	})
}

// addValue adds an item whose value the caller supplies. The range is
// still checked against buf; buf may be nil only for an empty range.
func (n *Node) addValue(op string, id FieldID, buf *tvb.Buffer, start, length int, set func(*HeaderField, *ftypes.FValue) bool) (*Node, error) {
	t := n.live(op)
	hf := t.reg.LookupByID(id)
	if err := t.reserve(); err != nil {
		return nil, err
	}
	if start < 0 || length < -1 {
		contractViolation(op, hf.Abbrev, "invalid range start %d length %d", start, length)
	}
	if buf == nil {
		if start != 0 || length != 0 {
			contractViolation(op, hf.Abbrev, "range without a buffer")
		}
	} else {
		resolved, err := buf.Ensure(start, length)
		if err != nil {
			return nil, err
		}
		length = resolved
	}
	fv := ftypes.New(hf.Type)
	if !set(hf, fv) {
		contractViolation(op, hf.Abbrev, "field is %s", hf.Type)
	}
	return n.attach(hf, fv, buf, start, length, EncNA), nil
}

// AddSubtree marks n as a nesting point of the given kind and returns it,
// so further items can be added beneath it.
func (n *Node) AddSubtree(kind SubtreeKind) *Node {
	n.live("add subtree")
	if n.info != nil {
		n.info.SubtreeType = kind
	}
	return n
}

func (t *Tree) reserve() error {
	if t.data.maxItems > 0 && t.data.items >= t.data.maxItems {
		return ErrTooManyItems
	}
	return nil
}

func (n *Node) attach(hf *HeaderField, fv *ftypes.FValue, buf *tvb.Buffer, start, length int, enc Encoding) *Node {
	t := n.tree
	fi := &FieldInfo{
		HField:     hf,
		Value:      fv,
		Start:      start,
		Length:     length,
		Encoding:   enc,
		DataSource: buf,
	}
	if t.data.observer != nil {
		t.data.observer.ValueConstructed(fv)
	}
	if t.data.Visible {
		fi.Label()
	}
	child := &Node{info: fi, parent: n, tree: t}
	n.children = append(n.children, child)
	t.data.items++
	if list, ok := t.data.interesting[hf.ID]; ok {
		t.data.interesting[hf.ID] = append(list, fi)
	}
	return child
}

// SetText replaces the item's label.
func (n *Node) SetText(label string) *Node {
	fi := n.mustItem("set text")
	fi.label = label
	fi.hasLabel = true
	return n
}

// AppendText extends the item's label.
func (n *Node) AppendText(s string) *Node {
	fi := n.mustItem("append text")
	fi.label = fi.Label() + s
	return n
}

// SetHidden marks the item hidden.
func (n *Node) SetHidden() *Node {
	n.mustItem("set hidden").Flags |= FlagHidden
	return n
}

// SetGenerated marks the item generated.
func (n *Node) SetGenerated() *Node {
	n.mustItem("set generated").Flags |= FlagGenerated
	return n
}

// SetCrossRef marks the item as a cross-reference.
func (n *Node) SetCrossRef() *Node {
	n.mustItem("set cross reference").Flags |= FlagCrossRef
	return n
}

// SetLen changes the length of the item's range. The new range may run
// past the captured bytes but not past the reported length. Children keep
// their own ranges.
func (n *Node) SetLen(length int) error {
	fi := n.mustItem("set length")
	if length < 0 {
		contractViolation("set length", fi.HField.Abbrev, "negative length %d", length)
	}
	if fi.DataSource == nil {
		contractViolation("set length", fi.HField.Abbrev, "item has no data source")
	}
	if _, err := fi.DataSource.Ensure(fi.Start, length); err != nil && !errors.Is(err, tvb.ErrBounds) {
		return err
	}
	fi.Length = length
	if fi.HField.Type == ftypes.FTProtocol {
		fi.Value.SetBytes(captured(fi.DataSource, fi.Start, length))
	}
	return nil
}

// SetEnd sets the item's range to end at offset end of buf. buf may be
// the item's own data source or any buffer cut from the same frame.
func (n *Node) SetEnd(buf *tvb.Buffer, end int) error {
	fi := n.mustItem("set end")
	if fi.DataSource == nil {
		contractViolation("set end", fi.HField.Abbrev, "item has no data source")
	}
	if buf == nil {
		contractViolation("set end", fi.HField.Abbrev, "nil buffer")
	}
	length := buf.Base() + end - fi.AbsoluteStart()
	if length < 0 {
		contractViolation("set end", fi.HField.Abbrev, "end %d precedes start", end)
	}
	return n.SetLen(length)
}

// captured returns the part of buf[start, start+length) that was captured.
func captured(buf *tvb.Buffer, start, length int) []byte {
	avail := min(length, buf.Remaining(start))
	if avail <= 0 {
		return nil
	}
	b, err := buf.Bytes(start, avail)
	if err != nil {
		return nil
	}
	return b
}

// decodeValue reads a value of hf's category from buf and returns it with
// the resolved length.
func decodeValue(hf *HeaderField, buf *tvb.Buffer, start, length int, enc Encoding) (*ftypes.FValue, int, error) {
	if start < 0 || length < -1 {
		contractViolation("add item", hf.Abbrev, "invalid range start %d length %d", start, length)
	}
	ft := hf.FieldType()
	order := enc.byteOrder()

	switch {
	case hf.Type == ftypes.FTNone, hf.Type == ftypes.FTProtocol:
		n, err := buf.Ensure(start, length)
		if err != nil {
			if !errors.Is(err, tvb.ErrBounds) {
				return nil, 0, err
			}
			if length == -1 {
				length = buf.ReportedLength() - start
			}
			n = length
		}
		fv := ftypes.New(hf.Type)
		if hf.Type == ftypes.FTProtocol {
			fv.SetBytes(captured(buf, start, n))
		}
		return fv, n, nil

	case hf.Type == ftypes.FTBoolean:
		if length < 1 || length > 8 {
			contractViolation("add item", hf.Abbrev, "boolean of %d bytes", length)
		}
		raw, err := buf.UintN(start, length, order)
		if err != nil {
			return nil, 0, err
		}
		fv := ftypes.New(hf.Type)
		fv.SetUinteger(hf.apply(raw))
		return fv, length, nil

	case ft.IsInteger():
		if length < 1 || length > ft.WireSize {
			contractViolation("add item", hf.Abbrev, "%d bytes for %s", length, hf.Type)
		}
		raw, err := buf.UintN(start, length, order)
		if err != nil {
			return nil, 0, err
		}
		v := hf.apply(raw)
		fv := ftypes.New(hf.Type)
		if ft.IsUnsigned() {
			fv.SetUinteger(v)
		} else {
			fv.SetSinteger(signExtend(v, hf.valueBits(length)))
		}
		return fv, length, nil

	case hf.Type == ftypes.FTFloat, hf.Type == ftypes.FTDouble:
		if length != ft.WireSize {
			contractViolation("add item", hf.Abbrev, "%d bytes for %s", length, hf.Type)
		}
		var f float64
		if hf.Type == ftypes.FTFloat {
			f32, err := buf.Float32(start, order)
			if err != nil {
				return nil, 0, err
			}
			f = float64(f32)
		} else {
			f64, err := buf.Float64(start, order)
			if err != nil {
				return nil, 0, err
			}
			f = f64
		}
		fv := ftypes.New(hf.Type)
		fv.SetFloating(f)
		return fv, length, nil

	case hf.Type == ftypes.FTAbsoluteTime, hf.Type == ftypes.FTRelativeTime:
		if length != enc.timeWireSize() {
			contractViolation("add item", hf.Abbrev, "%d bytes for time encoding 0x%x", length, uint32(enc.timeLayout()))
		}
		secs, nsecs, err := readTime(buf, start, enc)
		if err != nil {
			return nil, 0, err
		}
		fv := ftypes.New(hf.Type)
		if hf.Type == ftypes.FTAbsoluteTime {
			fv.SetTime(time.Unix(int64(uint32(secs)), nsecs).UTC())
		} else {
			fv.SetDuration(time.Duration(secs)*time.Second + time.Duration(nsecs))
		}
		return fv, length, nil

	case ft.IsString():
		if hf.Type == ftypes.FTStringz && length == -1 {
			end := findNUL(captured(buf, start, buf.Remaining(start)), enc)
			if end < 0 {
				_, err := buf.Ensure(start, buf.Remaining(start)+1)
				return nil, 0, err
			}
			length = end
		}
		b, err := buf.Bytes(start, length)
		if err != nil {
			return nil, 0, err
		}
		n := len(b)
		if hf.Type == ftypes.FTStringz {
			b = trimAtNUL(b, enc)
		}
		fv := ftypes.New(hf.Type)
		fv.SetString(decodeText(b, enc))
		return fv, n, nil

	case hf.Type == ftypes.FTBytes:
		b, err := buf.Bytes(start, length)
		if err != nil {
			return nil, 0, err
		}
		fv := ftypes.New(hf.Type)
		fv.SetBytes(b)
		return fv, len(b), nil

	case ft.WireSize > 0:
		// Ether, IPv4, IPv6, GUID
		if length != ft.WireSize {
			contractViolation("add item", hf.Abbrev, "%d bytes for %s", length, hf.Type)
		}
		b, err := buf.Bytes(start, length)
		if err != nil {
			return nil, 0, err
		}
		fv := ftypes.New(hf.Type)
		if hf.Type == ftypes.FTGUID && enc&EncLittleEndian != 0 {
			b = swapGUID(b)
		}
		fv.SetBytes(b)
		return fv, length, nil
	}

	contractViolation("add item", hf.Abbrev, "%s cannot be decoded from wire bytes", hf.Type)
	return nil, 0, nil
}

func readTime(buf *tvb.Buffer, start int, enc Encoding) (int32, int64, error) {
	order := enc.byteOrder()
	secs, err := buf.Uint32(start, order)
	if err != nil {
		return 0, 0, err
	}
	if enc.timeLayout() == EncTimeSecs {
		return int32(secs), 0, nil
	}
	frac, err := buf.Uint32(start+4, order)
	if err != nil {
		return 0, 0, err
	}
	if enc.timeLayout() == EncTimeSecsUsecs {
		return int32(secs), int64(frac) * 1000, nil
	}
	return int32(secs), int64(frac), nil
}

func signExtend(v uint64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return int64(v)
	}
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}

// swapGUID converts the mixed-endian wire layout of a little-endian GUID
// to the canonical big-endian byte order.
func swapGUID(b []byte) []byte {
	out := append([]byte(nil), b...)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	return out
}

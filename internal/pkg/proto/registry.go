package proto

import (
	"fmt"
	"sync"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/logger"
)

// Registry is the catalog of protocol and field descriptors.
//
// Registration happens once, during an initialization phase the host
// serializes. Close ends that phase; afterwards the registry is read-only
// and may be shared by any number of goroutines.
type Registry struct {
	mu       sync.RWMutex
	fields   []*HeaderField          // indexed by FieldID
	byName   map[string]*HeaderField // abbrev -> newest descriptor
	subtrees int
	closed   bool
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// NewRegistry creates an empty registry. Tests use a fresh registry each;
// programs normally share Default.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*HeaderField),
	}
}

// Default returns the process-wide registry.
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register appends a descriptor under parent and returns its ID. Use
// NoParent to register a protocol root. A descriptor whose declaration
// does not fit its category panics with *RegistrationError.
func (r *Registry) Register(hf HeaderField, parent FieldID) FieldID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		registrationFailure(hf.Abbrev, "registry is closed")
	}
	hf.Parent = parent
	r.validate(&hf)

	stored := hf
	stored.ID = FieldID(len(r.fields))
	if head, ok := r.byName[stored.Abbrev]; ok {
		stored.sameNameNext = head
	}
	r.fields = append(r.fields, &stored)
	r.byName[stored.Abbrev] = &stored

	logger.Debug("Field registered",
		"id", stored.ID,
		"abbrev", stored.Abbrev,
		"type", stored.Type,
		"parent", stored.Parent)

	return stored.ID
}

// RegisterProtocol registers a protocol root.
func (r *Registry) RegisterProtocol(name, shortName, abbrev string) FieldID {
	return r.Register(HeaderField{
		Name:      name,
		ShortName: shortName,
		Abbrev:    abbrev,
		Type:      ftypes.FTProtocol,
	}, NoParent)
}

// RegisterFields registers a decoder's fields under parent and stores each
// ID through its registration's pointer.
func (r *Registry) RegisterFields(parent FieldID, regs []FieldRegistration) {
	for i := range regs {
		id := r.Register(regs[i].Field, parent)
		if regs[i].ID != nil {
			*regs[i].ID = id
		}
	}
}

// RegisterSubtrees assigns a fresh kind to each pointer.
func (r *Registry) RegisterSubtrees(kinds ...*SubtreeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		registrationFailure("", "registry is closed")
	}
	for _, k := range kinds {
		r.subtrees++
		*k = SubtreeKind(r.subtrees)
	}
}

// Close ends the registration phase.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	protocols := 0
	for _, hf := range r.fields {
		if hf.IsProtocol() {
			protocols++
		}
	}
	logger.Info("Field registry closed",
		"protocols", protocols,
		"fields", len(r.fields)-protocols,
		"subtrees", r.subtrees)
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fields)
}

// LookupByID returns the descriptor with the given ID. IDs are only minted
// by the registry, so an unknown ID panics.
func (r *Registry) LookupByID(id FieldID) *HeaderField {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 0 || int(id) >= len(r.fields) {
		contractViolation("lookup", fmt.Sprintf("#%d", id), "field ID out of range")
	}
	return r.fields[id]
}

// LookupByName returns the newest descriptor registered under abbrev.
// Older ones are reached through SameNameNext.
func (r *Registry) LookupByName(abbrev string) (*HeaderField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hf, ok := r.byName[abbrev]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, abbrev)
	}
	return hf, nil
}

// IsProtocolRoot reports whether id names a protocol.
func (r *Registry) IsProtocolRoot(id FieldID) bool {
	return r.LookupByID(id).IsProtocol()
}

// ParentOf returns the protocol a field belongs to, or NoParent.
func (r *Registry) ParentOf(id FieldID) FieldID {
	return r.LookupByID(id).Parent
}

// ProtocolOf returns the protocol root of id, which is id itself for roots.
func (r *Registry) ProtocolOf(id FieldID) FieldID {
	if p := r.ParentOf(id); p != NoParent {
		return p
	}
	return id
}

func (r *Registry) validate(hf *HeaderField) {
	if hf.Name == "" {
		registrationFailure(hf.Abbrev, "empty name")
	}
	if !validAbbrev(hf.Abbrev) {
		registrationFailure(hf.Abbrev, "abbreviation must be non-empty and use only letters, digits, '.', '_' or '-'")
	}
	if !hf.Type.Valid() {
		registrationFailure(hf.Abbrev, "unknown category %d", int(hf.Type))
	}
	ft := ftypes.Lookup(hf.Type)
	if hf.Type == ftypes.FTPattern {
		registrationFailure(hf.Abbrev, "%s cannot be carried by a field", ft.Name)
	}

	if hf.Parent == NoParent {
		if hf.Type != ftypes.FTProtocol && hf.Type != ftypes.FTNone {
			registrationFailure(hf.Abbrev, "protocol root must be FT_PROTOCOL or FT_NONE, not %s", ft.Name)
		}
	} else {
		if hf.Parent < 0 || int(hf.Parent) >= len(r.fields) {
			registrationFailure(hf.Abbrev, "unknown parent %d", hf.Parent)
		}
		if !r.fields[hf.Parent].IsProtocol() {
			registrationFailure(hf.Abbrev, "parent %q is not a protocol", r.fields[hf.Parent].Abbrev)
		}
		if hf.ShortName != "" {
			registrationFailure(hf.Abbrev, "short name is only valid on protocols")
		}
	}

	isBool := hf.Type == ftypes.FTBoolean
	numeric := ft.IsInteger() || isBool

	if hf.Bitmask != 0 && !numeric {
		registrationFailure(hf.Abbrev, "bitmask on %s", ft.Name)
	}
	if hf.Strings != nil && !numeric {
		registrationFailure(hf.Abbrev, "value strings on %s", ft.Name)
	}
	if ft.IsInteger() && hf.Bitmask != 0 && ft.Bits() < 64 && hf.Bitmask>>ft.Bits() != 0 {
		registrationFailure(hf.Abbrev, "bitmask 0x%x wider than %s", hf.Bitmask, ft.Name)
	}

	if isBool {
		switch hf.BitWidth {
		case 0, 8, 16, 24, 32, 64:
		default:
			registrationFailure(hf.Abbrev, "boolean bit width %d", hf.BitWidth)
		}
		if hf.BitWidth > 0 && hf.BitWidth < 64 && hf.Bitmask>>hf.BitWidth != 0 {
			registrationFailure(hf.Abbrev, "bitmask 0x%x wider than %d bits", hf.Bitmask, hf.BitWidth)
		}
		if hf.Display != BaseNone {
			registrationFailure(hf.Abbrev, "booleans take no display base")
		}
	} else if hf.BitWidth != 0 {
		registrationFailure(hf.Abbrev, "bit width on %s", ft.Name)
	}

	if ft.IsInteger() {
		if hf.Display < BaseNone || hf.Display > BaseHexDec {
			registrationFailure(hf.Abbrev, "unknown display base %d", int(hf.Display))
		}
	} else if !isBool && hf.Display != BaseNone {
		registrationFailure(hf.Abbrev, "display base %s on %s", hf.Display, ft.Name)
	}
}

func validAbbrev(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// Cursor enumerates descriptors lazily. A cursor is consumed once; it does
// not restart.
type Cursor struct {
	r     *Registry
	next  int
	cur   *HeaderField
	match func(*HeaderField) bool
	done  bool
}

// Protocols returns a cursor over every protocol root in ID order.
func (r *Registry) Protocols() *Cursor {
	return &Cursor{r: r, match: (*HeaderField).IsProtocol}
}

// Fields returns a cursor over the fields of one protocol in ID order.
func (r *Registry) Fields(protocol FieldID) *Cursor {
	return &Cursor{r: r, match: func(hf *HeaderField) bool {
		return hf.Parent == protocol
	}}
}

// All returns a cursor over every descriptor in ID order.
func (r *Registry) All() *Cursor {
	return &Cursor{r: r, match: func(*HeaderField) bool { return true }}
}

// Next advances the cursor and reports whether a descriptor is available.
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()

	for c.next < len(c.r.fields) {
		hf := c.r.fields[c.next]
		c.next++
		if c.match(hf) {
			c.cur = hf
			return true
		}
	}
	c.cur = nil
	c.done = true
	return false
}

// Field returns the descriptor at the cursor position.
func (c *Cursor) Field() *HeaderField {
	return c.cur
}

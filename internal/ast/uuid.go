package ast

import (
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ID is the 128-bit identifier spec.md §3 attaches to every nameable
// declaration (function, class, enum, variant, trait, trait method, error,
// field, parameter, app). It is the sole link between a use-site and its
// definition once semantic analysis has run.
type ID = uuid.UUID

// NewID mints a fresh declaration UUID. Called exactly once per nameable
// entity, at parse time (spec.md §4.A).
func NewID() ID { return uuid.New() }

// NilID is the zero UUID, used as the "not yet resolved" sentinel for
// OptionalID before the cross-reference resolver (§4.G) fills it in.
var NilID = uuid.Nil

// OptionalID models Rust's Option<UUID> for use-site reference slots: every
// call site, struct literal, enum constructor, raise site, and match arm
// carries one of these, filled in by the resolver.
type OptionalID struct {
	id    ID
	valid bool
}

func SomeID(id ID) OptionalID { return OptionalID{id: id, valid: true} }
func NoID() OptionalID        { return OptionalID{} }

func (o OptionalID) IsSome() bool { return o.valid }
func (o OptionalID) Get() (ID, bool) {
	return o.id, o.valid
}

// MustGet panics if the slot is unresolved; callers use it only after
// confirming resolution succeeded (e.g. in codegen, downstream of §4.G).
func (o OptionalID) MustGet() ID {
	if !o.valid {
		panic("ast: OptionalID.MustGet on unresolved slot")
	}
	return o.id
}

// EncodeMsgpack/DecodeMsgpack implement msgpack.CustomEncoder/CustomDecoder
// so the derived-data container (§4.H) round-trips OptionalID's private
// fields faithfully — reflection-based codecs can't see unexported struct
// fields, so the zero-value default would silently turn every resolved
// reference slot into an unresolved one on decode.
func (o OptionalID) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeBool(o.valid); err != nil {
		return err
	}
	if !o.valid {
		return enc.EncodeBytes(nil)
	}
	return enc.EncodeBytes(o.id[:])
}

func (o *OptionalID) DecodeMsgpack(dec *msgpack.Decoder) error {
	valid, err := dec.DecodeBool()
	if err != nil {
		return err
	}
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if !valid {
		*o = OptionalID{}
		return nil
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return err
	}
	*o = OptionalID{id: id, valid: true}
	return nil
}

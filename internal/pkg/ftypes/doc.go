// Package ftypes provides the field value type system used by the dissection
// core.
//
// Every wire value category (booleans, integers of several widths, floats,
// timestamps, text, byte strings, addresses, GUIDs and compiled patterns) is
// described by exactly one FieldType. A FieldType is built once at package
// initialization and never changes; decoders and the tree only ever hold
// pointers to the shared instances returned by Lookup.
//
// # Values
//
// An FValue is a value instance bound to one FieldType. Scalars are stored
// inline, variable-length categories own their byte slice or string. Values
// are created with New or ParseFromText and released with Free exactly once:
//
//	v, err := ftypes.ParseFromText(ftypes.FTUint16, "0x0800", false)
//	if err != nil {
//	    return err
//	}
//	defer v.Free()
//	fmt.Println(v.Render(ftypes.RenderDisplay)) // 2048
//
// # Capabilities
//
// Not every category supports every operation. Ordering is only meaningful
// for ordered categories, substring search and pattern matching only for
// byte and text categories, slicing only for byte-oriented categories. Use
// FieldType.Can to check a capability before calling the operation: calling
// a disabled operation is a programming error and panics with a
// *ContractError. Malformed text is not a programming error and is reported
// by ParseFromText as a *ParseError.
package ftypes

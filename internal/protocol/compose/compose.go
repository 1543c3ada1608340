// Package compose implements the Composer/Decomposer contracts of spec §3.2:
// polymorphic sinks and sources that bridge arbitrary Go values to the wire
// codecs without the codecs ever needing to know the concrete Go type.
//
// A Formatter is the event sink a Decomposer drives while walking a user
// value (beginObject/beginMember/addValue/beginArray/finishArray/
// finishObject/addNull, spec §3.2). Both the binary and JSON formatters
// implement Formatter. A Composer is the sink a parser drives while reading
// bytes; both wire parsers drive a Composer to place decoded values into a
// user-supplied holder.
//
// Two Composer/Decomposer families exist; the reflection family handles
// both primitives and aggregates, and the tree family is the tree adapter:
//   - Reflect{Composer,Decomposer}: direct reflection over an arbitrary Go
//     value, used by pkg/serial for the common case and by the RPC client's
//     pendingResult.
//   - Tree{Composer,Decomposer}: targets a *sinfo.Info node directly, used
//     when the caller wants the raw tree (tests, tooling, cmd/sertool).
package compose

import "github.com/maekitalo/sertools/internal/protocol/sinfo"

// Formatter is the event sink a Decomposer drives. Implemented by
// internal/protocol/bin.Formatter and internal/protocol/json.Formatter.
type Formatter interface {
	BeginObject(typeName string) error
	BeginMember(name string) error
	FinishMember() error
	FinishObject() error

	BeginArray(typeName string) error
	FinishArray() error

	AddValue(typeName string, v sinfo.Scalar) error
	AddNull(typeName string) error
}

// Decomposer is a source that a formatter pulls from: Format walks a user
// value, emitting the Formatter event sequence that reproduces it on the
// wire (spec §3.2).
type Decomposer interface {
	Format(f Formatter) error
}

// Composer is a sink that a parser drives while decoding a wire value,
// capability set {enter-named-child, enter-positional-child, set-scalar,
// set-null, finalize} (spec §3.2/§9).
type Composer interface {
	SetCategory(sinfo.Category)
	SetTypeName(string)

	// BeginMember enters a named child (object member) and returns the
	// Composer responsible for populating it.
	BeginMember(name string) (Composer, error)

	// BeginElement enters a positional child (array element) and returns
	// the Composer responsible for populating it.
	BeginElement() (Composer, error)

	SetValue(sinfo.Scalar) error
	SetNull() error

	// Finalize is called exactly once, after this Composer's own value (or
	// all of its members/elements) has been fully populated. The
	// reflection Composer commits its value into its parent here (struct
	// field, map entry, slice element) — see
	// internal/protocol/compose/reflect.go. TreeComposer attaches each
	// child in BeginMember/BeginElement, so its Finalize does nothing.
	Finalize() error
}

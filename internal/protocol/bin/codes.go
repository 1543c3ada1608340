// Package bin implements the self-describing binary wire codec of spec
// §4.1–§4.3: a stable mapping of one-byte type codes (parallel "named" and
// "plain" code spaces), an incremental Parser driving a compose.Composer,
// a Formatter consuming compose.Decomposer events, and the Scanner that
// layers RPC reply framing (§4.2.1) on top of the Parser.
package bin

// Sentinel bytes reserved outside the scalar/aggregate type-code space.
const (
	nameTerminator  = 0x00 // ends a named code's UTF-8 name
	stringTerminator = 0xff // ends variable-length textual payloads and aggregates
	memberSeparator = 0x01 // precedes each object member

	// RPC framing markers (§4.1 "RPC framing layer above scalars"). These
	// are never emitted as scalar/aggregate type codes; they only appear
	// as the very first byte of a request, or the first byte the Scanner
	// inspects on a reply, so there is no ambiguity with the type-code
	// tables below.
	rpcNoDomain     = 0xc0
	rpcWithDomain   = 0xc3
	rpcReplyValue   = 0x41
	rpcReplyError   = 0x42
)

// scalarCode enumerates, in table order, every scalar/well-known-container
// semantic of §4.1. The concrete byte values are this implementation's own
// choice (spec §4.1 fixes only a handful of example bytes used in scenario
// 1; everything else is "the implementation must maintain a stable
// mapping"). The layout chosen here: plain codes start at 0x20 and named
// codes at 0x60, each following the table order below.
type scalarCode int

const (
	codeEmpty scalarCode = iota
	codeBool
	codeChar
	codeString
	codeInt8
	codeInt16
	codeInt32
	codeInt64
	codeUInt8
	codeUInt16
	codeUInt32
	codeUInt64
	codeBcdFloat
	codeShortFloat
	codeMediumFloat
	codeLongFloat
	codeBinary2
	codeBinary4
	codeOther
	codePair
	codeArray
	codeList
	codeDeque
	codeSet
	codeMultiset
	codeMap
	codeMultimap
	numScalarCodes
)

const (
	plainBase = 0x20 // plain codes occupy 0x20..0x20+numScalarCodes-1
	namedBase = 0x60 // named codes occupy 0x60..0x60+numScalarCodes-1

	// Structural aggregate markers (§4.1 "Aggregates"), disjoint from both
	// the plain and named scalar ranges (which end at 0x3a/0x7a). Each has
	// a plain (unnamed, e.g. array element or RPC value) and named (object
	// member) variant, same as scalar codes.
	codeCategoryObjectPlain = 0x3d
	codeCategoryObjectNamed = 0x7d
	codeCategoryArrayPlain  = 0x3e
	codeCategoryArrayNamed  = 0x7e
)

func plainCode(c scalarCode) byte { return byte(plainBase + int(c)) }
func namedCode(c scalarCode) byte { return byte(namedBase + int(c)) }

// classify reports whether b falls in the plain or the named scalar-code
// range, and recovers the scalarCode and whether the code carried a name.
func classify(b byte) (code scalarCode, named bool, ok bool) {
	switch {
	case b >= plainBase && int(b) < plainBase+int(numScalarCodes):
		return scalarCode(int(b) - plainBase), false, true
	case b >= namedBase && int(b) < namedBase+int(numScalarCodes):
		return scalarCode(int(b) - namedBase), true, true
	default:
		return 0, false, false
	}
}

// intWidthCode returns the narrowest signed-int code able to hold v,
// per §4.1 "Integer width selection": "pick the narrowest of {Int8, Int16,
// Int32, Int64} that holds the value; emit non-negative values using the
// unsigned codes."
func intWidthCode(v int64) scalarCode {
	switch {
	case v >= -0x80 && v <= 0x7f:
		return codeInt8
	case v >= -0x8000 && v <= 0x7fff:
		return codeInt16
	case v >= -0x80000000 && v <= 0x7fffffff:
		return codeInt32
	default:
		return codeInt64
	}
}

func uintWidthCode(v uint64) scalarCode {
	switch {
	case v <= 0xff:
		return codeUInt8
	case v <= 0xffff:
		return codeUInt16
	case v <= 0xffffffff:
		return codeUInt32
	default:
		return codeUInt64
	}
}

func intWidthBytes(c scalarCode) int {
	switch c {
	case codeInt8, codeUInt8:
		return 1
	case codeInt16, codeUInt16:
		return 2
	case codeInt32, codeUInt32:
		return 4
	case codeInt64, codeUInt64:
		return 8
	default:
		return 0
	}
}

// containerCodeForTypeName maps a well-known container type-name hint onto
// its scalarCode (§4.1 "Well-known names"). Returns (codeOther, false) for
// anything else, meaning the caller must fall back to TypeOther+name.
func containerCodeForTypeName(name string) (scalarCode, bool) {
	switch name {
	case "pair":
		return codePair, true
	case "array":
		return codeArray, true
	case "list":
		return codeList, true
	case "deque":
		return codeDeque, true
	case "set":
		return codeSet, true
	case "multiset":
		return codeMultiset, true
	case "map":
		return codeMap, true
	case "multimap":
		return codeMultimap, true
	default:
		return codeOther, false
	}
}

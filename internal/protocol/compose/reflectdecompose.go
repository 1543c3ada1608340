package compose

import (
	"reflect"

	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// ReflectDecomposer is the Decomposer variant that walks an arbitrary Go
// value directly via reflection and emits Formatter events, the mirror
// image of ReflectComposer. No intermediate sinfo.Info tree is built.
type ReflectDecomposer struct {
	v reflect.Value
}

// NewReflectDecomposer wraps any Go value (not necessarily a pointer).
func NewReflectDecomposer(v any) *ReflectDecomposer {
	return &ReflectDecomposer{v: reflect.ValueOf(v)}
}

func (d *ReflectDecomposer) Format(f Formatter) error {
	return decomposeValue(d.v, f)
}

func decomposeValue(v reflect.Value, f Formatter) error {
	if !v.IsValid() {
		return f.AddNull("")
	}

	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return f.AddNull(typeNameFor(v.Type()))
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if err := f.BeginObject(typeNameFor(v.Type())); err != nil {
			return err
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup(structTag); ok && tag != "" {
				name = tag
			}
			if err := f.BeginMember(name); err != nil {
				return err
			}
			if err := decomposeValue(v.Field(i), f); err != nil {
				return err
			}
			if err := f.FinishMember(); err != nil {
				return err
			}
		}
		return f.FinishObject()

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return f.AddValue("binary", sinfo.BytesScalar(v.Bytes()))
		}
		if err := f.BeginArray(typeNameFor(v.Type())); err != nil {
			return err
		}
		for i := 0; i < v.Len(); i++ {
			if err := decomposeValue(v.Index(i), f); err != nil {
				return err
			}
		}
		return f.FinishArray()

	case reflect.Map:
		if err := f.BeginObject("map"); err != nil {
			return err
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := f.BeginMember(keyToString(iter.Key())); err != nil {
				return err
			}
			if err := decomposeValue(iter.Value(), f); err != nil {
				return err
			}
			if err := f.FinishMember(); err != nil {
				return err
			}
		}
		return f.FinishObject()

	case reflect.String:
		return f.AddValue("string", sinfo.StringScalar(v.String()))
	case reflect.Bool:
		return f.AddValue("bool", sinfo.BoolScalar(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.AddValue("int", sinfo.IntScalar(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return f.AddValue("int", sinfo.UintScalar(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return f.AddValue("double", sinfo.FloatScalar(v.Float()))
	default:
		return f.AddNull(typeNameFor(v.Type()))
	}
}

func keyToString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	ds := NewReflectDecomposer(k.Interface())
	var sb stringCollector
	_ = ds.Format(&sb)
	return sb.s
}

// stringCollector is a minimal Formatter that stringifies a scalar key; used
// only by keyToString for non-string map keys.
type stringCollector struct{ s string }

func (c *stringCollector) BeginObject(string) error { return nil }
func (c *stringCollector) BeginMember(string) error { return nil }
func (c *stringCollector) FinishMember() error      { return nil }
func (c *stringCollector) FinishObject() error       { return nil }
func (c *stringCollector) BeginArray(string) error  { return nil }
func (c *stringCollector) FinishArray() error        { return nil }
func (c *stringCollector) AddValue(_ string, v sinfo.Scalar) error {
	s, err := v.AsString()
	c.s = s
	return err
}
func (c *stringCollector) AddNull(string) error { c.s = ""; return nil }

func typeNameFor(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "double"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct:
		return t.Name()
	default:
		return ""
	}
}

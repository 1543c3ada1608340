package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

type testObject struct {
	IntValue    int
	StringValue string
	DoubleValue float64
	BoolValue   bool
}

func TestReflectDecomposeIntoTreeComposeRoundTrip(t *testing.T) {
	obj := testObject{IntValue: 17, StringValue: "foobar", DoubleValue: 3.125, BoolValue: true}

	root := sinfo.New()
	tc := NewTreeComposer(root)

	// Drive the tree composer with the events a ReflectDecomposer emits for
	// obj, exercising both variants against each other.
	dec := NewReflectDecomposer(obj)
	var fmtr treeBuildingFormatter
	fmtr.stack = []compositeBuilder{{composer: tc}}
	require.NoError(t, dec.Format(&fmtr))

	sv, err := root.Members()[0].Value().AsInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 17, sv)

	var out testObject
	rc, err := NewReflectComposer(&out)
	require.NoError(t, err)
	require.NoError(t, NewTreeDecomposer(root).Format(&adapterFormatter{root: rc}))
	assert.Equal(t, obj, out)
}

// treeBuildingFormatter and compositeBuilder adapt the Formatter event
// sequence onto a Composer by maintaining a small stack, used only in this
// test to exercise Decomposer -> Composer plumbing without a wire codec in
// the loop.
type compositeBuilder struct {
	composer Composer
}

type treeBuildingFormatter struct {
	stack []compositeBuilder
}

func (f *treeBuildingFormatter) top() Composer { return f.stack[len(f.stack)-1].composer }

func (f *treeBuildingFormatter) BeginObject(typeName string) error {
	f.top().SetCategory(sinfo.CategoryObject)
	f.top().SetTypeName(typeName)
	return nil
}
func (f *treeBuildingFormatter) BeginMember(name string) error {
	child, err := f.top().BeginMember(name)
	if err != nil {
		return err
	}
	f.stack = append(f.stack, compositeBuilder{composer: child})
	return nil
}
func (f *treeBuildingFormatter) FinishMember() error {
	c := f.top()
	f.stack = f.stack[:len(f.stack)-1]
	return c.Finalize()
}
func (f *treeBuildingFormatter) FinishObject() error { return nil }
func (f *treeBuildingFormatter) BeginArray(typeName string) error {
	f.top().SetCategory(sinfo.CategoryArray)
	f.top().SetTypeName(typeName)
	return nil
}
func (f *treeBuildingFormatter) FinishArray() error { return nil }
func (f *treeBuildingFormatter) AddValue(typeName string, v sinfo.Scalar) error {
	f.top().SetTypeName(typeName)
	return f.top().SetValue(v)
}
func (f *treeBuildingFormatter) AddNull(typeName string) error {
	f.top().SetTypeName(typeName)
	return f.top().SetNull()
}

// adapterFormatter drives a Composer from a TreeDecomposer's Format call,
// reused from the same small plumbing as above but rooted at a single
// Composer passed in.
type adapterFormatter struct {
	root  Composer
	stack []Composer
}

func (f *adapterFormatter) cur() Composer {
	if len(f.stack) == 0 {
		return f.root
	}
	return f.stack[len(f.stack)-1]
}
func (f *adapterFormatter) BeginObject(typeName string) error {
	f.cur().SetCategory(sinfo.CategoryObject)
	f.cur().SetTypeName(typeName)
	return nil
}
func (f *adapterFormatter) BeginMember(name string) error {
	child, err := f.cur().BeginMember(name)
	if err != nil {
		return err
	}
	f.stack = append(f.stack, child)
	return nil
}
func (f *adapterFormatter) FinishMember() error {
	c := f.cur()
	f.stack = f.stack[:len(f.stack)-1]
	return c.Finalize()
}
func (f *adapterFormatter) FinishObject() error { return f.root.Finalize() }
func (f *adapterFormatter) BeginArray(typeName string) error {
	f.cur().SetCategory(sinfo.CategoryArray)
	f.cur().SetTypeName(typeName)
	return nil
}
func (f *adapterFormatter) FinishArray() error { return nil }
func (f *adapterFormatter) AddValue(typeName string, v sinfo.Scalar) error {
	f.cur().SetTypeName(typeName)
	return f.cur().SetValue(v)
}
func (f *adapterFormatter) AddNull(typeName string) error {
	f.cur().SetTypeName(typeName)
	return f.cur().SetNull()
}

package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

func parseString(t *testing.T, s string) *sinfo.Info {
	t.Helper()
	root := sinfo.New()
	p := NewParser(strings.NewReader(s))
	require.NoError(t, p.ParseValue(compose.NewTreeComposer(root)))
	return root
}

func TestLenientBareKeysAndComments(t *testing.T) {
	root := parseString(t, `{
		// a comment
		foo: 1, /* inline */
		bar: "baz"
	}`)
	assert.Equal(t, sinfo.CategoryObject, root.Category())
	v, err := root.Members()[0].Value().AsInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	s, err := root.Members()[1].Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "baz", s)
}

func TestSingleQuotedStrings(t *testing.T) {
	root := parseString(t, `{'k': 'v'}`)
	s, err := root.Members()[0].Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "v", s)
}

func TestUnicodeEscapeSurrogatePair(t *testing.T) {
	root := parseString(t, `"\uD83D\uDE00"`) // U+1F600, grinning face
	s, err := root.Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600", s)
}

func TestUnicodeEscapeBMP(t *testing.T) {
	root := parseString(t, `"\u00e4"`)
	s, err := root.Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "\u00e4", s)
}

func TestMultipleTopLevelDocuments(t *testing.T) {
	p := NewParser(strings.NewReader(`1 2 3`))
	var got []int64
	for p.More() {
		root := sinfo.New()
		require.NoError(t, p.ParseValue(compose.NewTreeComposer(root)))
		v, err := root.Value().AsInt64()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestArrayAndNestedObject(t *testing.T) {
	root := parseString(t, `{"items": [1, 2, {"nested": true}]}`)
	items := root.Members()[0]
	assert.Equal(t, sinfo.CategoryArray, items.Category())
	assert.Len(t, items.Members(), 3)
	nested := items.Members()[2]
	assert.Equal(t, sinfo.CategoryObject, nested.Category())
}

func TestFormatterRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetCategory(sinfo.CategoryObject)
	m := root.AddMember("name")
	m.SetTypeName("string")
	m.SetValue(sinfo.StringScalar("widget"))
	n := root.AddMember("count")
	n.SetTypeName("int")
	n.SetValue(sinfo.IntScalar(3))

	var buf bytes.Buffer
	f := NewFormatter(&buf)
	require.NoError(t, compose.NewTreeDecomposer(root).Format(f))
	require.NoError(t, f.Flush())

	out := sinfo.New()
	require.NoError(t, NewParser(&buf).ParseValue(compose.NewTreeComposer(out)))
	assert.True(t, root.Equal(out))
}

func TestFormatterBeautify(t *testing.T) {
	root := sinfo.New()
	root.SetCategory(sinfo.CategoryObject)
	m := root.AddMember("a")
	m.SetValue(sinfo.IntScalar(1))

	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.Beautify = true
	require.NoError(t, compose.NewTreeDecomposer(root).Format(f))
	require.NoError(t, f.Flush())
	assert.Contains(t, buf.String(), "\n")
}

func TestRawJSONPassthrough(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	require.NoError(t, f.AddValue("json", sinfo.StringScalar(`{"raw":true}`)))
	require.NoError(t, f.Flush())
	assert.Equal(t, `{"raw":true}`, buf.String())
}

package txc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	root, err := ParseBytes([]byte(`<?xml version="1.0"?>
<Root xmlns="http://example.org/ns">
  <Item id="a">  first  </Item>
  <Item>second</Item>
</Root>`))
	require.NoError(t, err)

	assert.Equal(t, "{http://example.org/ns}Root", root.Tag())
	require.Len(t, root.Children, 2)
	assert.Equal(t, "first", root.Children[0].Text())
	assert.Equal(t, "a", root.Children[0].Attr("id", ""))
	assert.Equal(t, "fallback", root.Children[1].Attr("id", "fallback"))
	assert.Equal(t, "http://example.org/ns", root.Children[1].Name.Space)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{name: "Truncated document", xml: `<Root><Item>text</Item><Item>`},
		{name: "Mismatched tags", xml: `<Root><Item></Other></Root>`},
		{name: "Not XML", xml: `this is not xml <<<`},
		{name: "Unsupported charset", xml: `<?xml version="1.0" encoding="EBCDIC"?><Root/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.xml))
			assert.Error(t, err)
		})
	}

	t.Run("Empty document", func(t *testing.T) {
		_, err := ParseBytes([]byte(`<?xml version="1.0"?>`))
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestParseSingleByteCharsets(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		body     []byte
		expected string
	}{
		{name: "Latin-1", encoding: "ISO-8859-1", body: []byte("Caf\xe9"), expected: "Café"},
		{name: "Windows-1252 punctuation", encoding: "windows-1252", body: []byte("\x93Caf\xe9\x94 \x80"), expected: "“Café” €"},
		{name: "Latin-9 euro", encoding: "ISO-8859-15", body: []byte("\xa4 5"), expected: "€ 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`<?xml version="1.0" encoding="` + tt.encoding + `"?><Root>`)
			data = append(data, tt.body...)
			data = append(data, []byte(`</Root>`)...)

			root, err := ParseBytes(data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, root.Text())
		})
	}
}

func TestWalkOrder(t *testing.T) {
	root, err := ParseBytes([]byte(`<A><B><C/></B><D/></A>`))
	require.NoError(t, err)

	var order []string
	root.Walk(func(n *Node) { order = append(order, n.Name.Local) })
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
}

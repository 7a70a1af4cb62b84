package reportformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	SectionID string  `json:"section_id"`
	Rate      float64 `json:"migration_rate"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", JSON, false},
		{"JSON", JSON, false},
		{" msgpack ", MsgPack, false},
		{"messagepack", MsgPack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteUsesJSONTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter().Write(&buf, JSON, sample{SectionID: "S1", Rate: 0.25}))
	assert.Contains(t, buf.String(), `"section_id": "S1"`)
	assert.Contains(t, buf.String(), `"migration_rate": 0.25`)
}

func TestMsgPackDecodesWithJSONTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter().Write(&buf, MsgPack, sample{SectionID: "S7", Rate: 0.5}))

	var m map[string]any
	require.NoError(t, Decode(bytes.NewReader(buf.Bytes()), MsgPack, &m))
	assert.Equal(t, "S7", m["section_id"])
	assert.Equal(t, 0.5, m["migration_rate"])
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "json", JSON.Extension())
	assert.Equal(t, "msgpack", MsgPack.Extension())
}

package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name    string            `json:"name"`
	Version int               `json:"version"`
	Tags    map[string]string `json:"tags,omitempty"`
}

func TestGoJSONRoundTrip(t *testing.T) {
	in := record{Name: "ivf", Version: 2, Tags: map[string]string{"a": "b"}}
	data, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, GoJSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestGoJSONStrict(t *testing.T) {
	var out record
	err := GoJSON{}.UnmarshalStrict([]byte(`{"name":"x","bogus":1}`), &out)
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	c, ok := ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCompressRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("annkit-blob-"), 512)
	random := []byte{0x01, 0xff, 0x7a}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			for _, in := range [][]byte{compressible, random, {}} {
				frame, err := Compress(c, in)
				require.NoError(t, err)

				out, err := Decompress(frame)
				require.NoError(t, err)
				assert.Equal(t, len(in), len(out))
				assert.True(t, bytes.Equal(in, out))
			}
		})
	}
}

func TestCompressShrinks(t *testing.T) {
	in := bytes.Repeat([]byte{0}, 1<<16)
	frame, err := Compress(CompressionZSTD, in)
	require.NoError(t, err)
	assert.Less(t, len(frame), len(in)/10)
	assert.Equal(t, byte(CompressionZSTD), frame[0])
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorrupt)

	frame, err := Compress(CompressionLZ4, bytes.Repeat([]byte("x"), 1024))
	require.NoError(t, err)
	frame[1] ^= 0xff
	_, err = Decompress(frame)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}

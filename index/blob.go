package index

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hupe1980/annkit/internal/wire"
)

// Blob is the serialized form of a built node. Data is opaque and owned by
// the index type named in Type.
type Blob struct {
	Type        string
	ElementType ElementType
	Version     Version
	Dim         int
	Count       int
	Data        []byte
}

var blobMagic = []byte("ANNK")

const blobFormat = 1

// ErrInvalidBlob is returned when a blob envelope cannot be decoded.
var ErrInvalidBlob = errors.New("invalid index blob")

// MarshalBinary encodes the blob with a self-describing header.
func (b Blob) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter(len(b.Data) + 64)
	for _, c := range blobMagic {
		w.U8(c)
	}
	w.U8(blobFormat)
	w.String(b.Type)
	w.U8(uint8(b.ElementType))
	w.U32(uint32(b.Version))
	w.Int(b.Dim)
	w.Int(b.Count)
	w.Raw(b.Data)
	return w.Bytes(), nil
}

// UnmarshalBinary decodes a blob produced by MarshalBinary.
func (b *Blob) UnmarshalBinary(data []byte) error {
	if len(data) < len(blobMagic)+1 || !bytes.Equal(data[:len(blobMagic)], blobMagic) {
		return fmt.Errorf("%w: bad magic", ErrInvalidBlob)
	}
	if data[len(blobMagic)] != blobFormat {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidBlob, data[len(blobMagic)])
	}
	r := wire.NewReader(data[len(blobMagic)+1:])
	out := Blob{
		Type:        r.String(),
		ElementType: ElementType(r.U8()),
		Version:     Version(r.U32()),
		Dim:         r.Int(),
		Count:       r.Int(),
		Data:        r.Raw(),
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	*b = out
	return nil
}

// CheckFor verifies that the blob was produced by index type typ for element
// type et with a loadable version.
func (b Blob) CheckFor(typ string, et ElementType) error {
	if b.Type != typ || b.ElementType != et {
		return fmt.Errorf("%w: have %s/%s, want %s/%s", ErrBlobMismatch, b.Type, b.ElementType, typ, et)
	}
	return CheckVersion(b.Version)
}

package annkit

import (
	"cmp"
	"strings"

	"github.com/hupe1980/annkit/index"
)

// Key identifies one registered implementation.
type Key struct {
	Name        string
	ElementType index.ElementType
}

func (k Key) String() string {
	return k.Name + "/" + k.ElementType.String()
}

// Compare orders keys by name, then element type.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.Name, o.Name); c != 0 {
		return c
	}
	return cmp.Compare(k.ElementType, o.ElementType)
}

package staging

import (
	"strconv"
	"time"

	"github.com/matjam/slideframe/internal/types"
)

// Key identifies a source image version. Two observations with the same path
// and modification time are assumed to have the same content.
type Key struct {
	Path    string
	ModTime time.Time
}

func KeyFor(img types.SourceImage) Key {
	return Key{Path: img.Path, ModTime: img.ModTime}
}

func (k Key) String() string {
	return k.Path + "@" + strconv.FormatInt(k.ModTime.UnixNano(), 10)
}

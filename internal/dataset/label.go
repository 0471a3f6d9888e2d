package dataset

import (
	"fmt"

	"vidbunch/internal/meta"
)

// Label is the classification target paired with one Video.
type Label struct {
	Meta meta.VideoMeta
	Data int
}

// NewLabel derives the target class id from clip.
func NewLabel(clip meta.VideoMeta) *Label {
	return &Label{Meta: clip, Data: clip.LID}
}

func (l *Label) String() string {
	return fmt.Sprintf("(%d %s)", l.Data, l.Meta.Label)
}

package studio

import "lookstudioapi/models"

// ImageVersion is one entry of the edit history.
type ImageVersion struct {
	Label string
	Image models.ImageFile
}

// History is a linear undo/redo list. The cursor is -1 only while empty.
// Appending after an undo discards the redo tail.
type History struct {
	versions []ImageVersion
	cursor   int
}

func NewHistory() *History {
	return &History{cursor: -1}
}

// Reset replaces the whole history with a single original version.
func (h *History) Reset(original ImageVersion) {
	h.versions = []ImageVersion{original}
	h.cursor = 0
}

func (h *History) Append(next ImageVersion) {
	h.versions = append(h.versions[:h.cursor+1:h.cursor+1], next)
	h.cursor = len(h.versions) - 1
}

func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	return true
}

func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	return true
}

// Drop removes the current version and everything after it, leaving the
// cursor on the previous version.
func (h *History) Drop() bool {
	if !h.CanUndo() {
		return false
	}
	h.versions = h.versions[:h.cursor:h.cursor]
	h.cursor--
	return true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.versions)-1 }

func (h *History) Current() (ImageVersion, bool) {
	if h.cursor < 0 {
		return ImageVersion{}, false
	}
	return h.versions[h.cursor], true
}

func (h *History) Original() (ImageVersion, bool) {
	if len(h.versions) == 0 {
		return ImageVersion{}, false
	}
	return h.versions[0], true
}

func (h *History) Len() int { return len(h.versions) }

func (h *History) Cursor() int { return h.cursor }

func (h *History) Labels() []string {
	labels := make([]string, len(h.versions))
	for i, v := range h.versions {
		labels[i] = v.Label
	}
	return labels
}

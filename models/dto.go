package models

type ClothingItemOut struct {
	ID         string           `json:"id"`
	Category   ClothingCategory `json:"category"`
	SourceMode SourceMode       `json:"source_mode"`
	Text       *string          `json:"text"`
	HasImage   bool             `json:"has_image"`
	Placement  *Point           `json:"placement"`
	Ready      bool             `json:"ready"`
}

type VariationsOut struct {
	Kind     GenerationKind `json:"kind"`
	Count    int            `json:"count"`
	Captions []string       `json:"captions"`
}

type RefinementOut struct {
	Open    bool    `json:"open"`
	Index   int     `json:"index"`
	Caption *string `json:"caption"`
}

// StateOut is the full studio snapshot returned after every action.
type StateOut struct {
	SessionID         string            `json:"session_id"`
	OriginalName      string            `json:"original_name"`
	History           []string          `json:"history"`
	Cursor            int               `json:"cursor"`
	CanUndo           bool              `json:"can_undo"`
	CanRedo           bool              `json:"can_redo"`
	Items             []ClothingItemOut `json:"items"`
	ActivePlacementID *string           `json:"active_placement_id"`
	OutfitApplied     bool              `json:"outfit_applied"`
	CanApply          bool              `json:"can_apply"`
	Variations        *VariationsOut    `json:"variations"`
	Refinement        RefinementOut     `json:"refinement"`
	Busy              bool              `json:"busy"`
	Status            string            `json:"status"`
	Error             string            `json:"error"`
}

type SessionCreatedOut struct {
	SessionID string   `json:"session_id"`
	Token     string   `json:"token"`
	State     StateOut `json:"state"`
}

type ExportOut struct {
	ID        uint   `json:"id"`
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

package studio

import (
	"errors"

	"lookstudioapi/models"

	"github.com/google/uuid"
)

var (
	ErrOutfitLocked      = errors.New("the applied outfit must be confirmed or discarded before editing items")
	ErrItemNotFound      = errors.New("clothing item not found")
	ErrNoActivePlacement = errors.New("no clothing item is waiting to be placed")
	ErrInvalidCategory   = errors.New("unknown clothing category")
	ErrInvalidSourceMode = errors.New("source mode must be image or text")
	ErrOutfitNotApplied  = errors.New("no applied outfit to confirm or discard")
	ErrOutfitIncomplete  = errors.New("every clothing item needs an image or description and a placement before applying")
)

// ItemPatch is a partial update; nil fields are left unchanged.
type ItemPatch struct {
	SourceMode *models.SourceMode
	Text       *string
	Image      *models.ImageFile
}

// Outfit holds the pending clothing items, the item awaiting placement and
// whether the items were already composed onto the photo.
type Outfit struct {
	items             []models.ClothingItem
	activePlacementID string
	applied           bool
	newID             func() string
}

func NewOutfit() *Outfit {
	return &Outfit{
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

func (o *Outfit) find(id string) int {
	for i := range o.items {
		if o.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Outfit) Add(category models.ClothingCategory) (models.ClothingItem, error) {
	if o.applied {
		return models.ClothingItem{}, ErrOutfitLocked
	}
	if !models.ValidateCategoryRaw(string(category)) {
		return models.ClothingItem{}, ErrInvalidCategory
	}
	item := models.ClothingItem{
		ID:         o.newID(),
		Category:   category,
		SourceMode: models.SourceImage,
	}
	o.items = append(o.items, item)
	return item, nil
}

// Update applies a patch. Switching the source mode drops the old value.
func (o *Outfit) Update(id string, patch ItemPatch) (models.ClothingItem, error) {
	if o.applied {
		return models.ClothingItem{}, ErrOutfitLocked
	}
	i := o.find(id)
	if i < 0 {
		return models.ClothingItem{}, ErrItemNotFound
	}
	item := o.items[i]
	if patch.SourceMode != nil && *patch.SourceMode != item.SourceMode {
		if !models.ValidateSourceModeRaw(string(*patch.SourceMode)) {
			return models.ClothingItem{}, ErrInvalidSourceMode
		}
		item.SourceMode = *patch.SourceMode
		item.Text = nil
		item.Image = nil
	}
	if patch.Text != nil {
		text := *patch.Text
		item.Text = &text
	}
	if patch.Image != nil {
		image := *patch.Image
		item.Image = &image
	}
	o.items[i] = item
	return item, nil
}

func (o *Outfit) Remove(id string) error {
	if o.applied {
		return ErrOutfitLocked
	}
	i := o.find(id)
	if i < 0 {
		return ErrItemNotFound
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	if o.activePlacementID == id {
		o.activePlacementID = ""
	}
	return nil
}

// BeginPlacement marks the item whose placement the next click sets.
func (o *Outfit) BeginPlacement(id string) error {
	if o.applied {
		return ErrOutfitLocked
	}
	if o.find(id) < 0 {
		return ErrItemNotFound
	}
	o.activePlacementID = id
	return nil
}

func (o *Outfit) CancelPlacement() {
	o.activePlacementID = ""
}

// Place sets the active item's placement and clears the active marker.
func (o *Outfit) Place(p models.Point) (models.ClothingItem, error) {
	if o.applied {
		return models.ClothingItem{}, ErrOutfitLocked
	}
	if o.activePlacementID == "" {
		return models.ClothingItem{}, ErrNoActivePlacement
	}
	i := o.find(o.activePlacementID)
	o.activePlacementID = ""
	if i < 0 {
		return models.ClothingItem{}, ErrItemNotFound
	}
	point := p
	o.items[i].Placement = &point
	return o.items[i], nil
}

func (o *Outfit) ActivePlacementID() string { return o.activePlacementID }

func (o *Outfit) Items() []models.ClothingItem {
	return append([]models.ClothingItem(nil), o.items...)
}

func (o *Outfit) Qualifying() []models.ClothingItem {
	var result []models.ClothingItem
	for _, item := range o.items {
		if item.Qualifies() {
			result = append(result, item)
		}
	}
	return result
}

// CanApply is true when there are items and every one has both a value and a
// placement.
func (o *Outfit) CanApply() bool {
	return !o.applied && len(o.items) > 0 && len(o.Qualifying()) == len(o.items)
}

func (o *Outfit) Applied() bool { return o.applied }

func (o *Outfit) MarkApplied() { o.applied = true }

func (o *Outfit) ResetApplied() { o.applied = false }

// Confirm accepts the applied result and starts a fresh item list.
func (o *Outfit) Confirm() {
	o.items = nil
	o.activePlacementID = ""
	o.applied = false
}

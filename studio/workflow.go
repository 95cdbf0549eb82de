package studio

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/services"

	"github.com/getsentry/sentry-go"
)

var (
	ErrBusy             = errors.New("another request is still running")
	ErrNoImage          = errors.New("upload a photo first")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrNoVariations     = errors.New("there are no generated variations")
	ErrVariationIndex   = errors.New("variation index out of range")
	ErrRefinementClosed = errors.New("open a variation for refinement first")
	ErrEmptyInstruction = errors.New("refinement instruction is empty")
	ErrNoContexts       = errors.New("describe at least one scene")
)

const maxContexts = 8

// GenerationRecorder persists the audit row of a finished remote call.
type GenerationRecorder interface {
	RecordGeneration(ctx context.Context, record *models.GenerationRecord) error
}

// VariationSet holds the images of the last batch operation and, for
// contextual batches, their captions.
type VariationSet struct {
	Kind     models.GenerationKind
	Images   []services.GeneratedImage
	Captions []string
}

type RefinementState struct {
	Open  bool
	Index int
}

// Workflow is the state of one studio session. Every user action goes
// through a single method that validates, mutates and reports under mu.
// While a remote request is outstanding the workflow is busy and every
// other action fails with ErrBusy.
type Workflow struct {
	mu sync.Mutex

	id           string
	originalName string
	history      *History
	outfit       *Outfit
	variations   *VariationSet
	refinement   RefinementState

	busy         bool
	status       string
	errorMessage string

	generator services.StudioGenerator
	recorder  GenerationRecorder
}

func NewWorkflow(id string, upload models.ImageFile, generator services.StudioGenerator, recorder GenerationRecorder) (*Workflow, error) {
	if upload.Empty() {
		return nil, ErrNoImage
	}
	w := &Workflow{
		id:        id,
		generator: generator,
		recorder:  recorder,
	}
	w.reset(upload)
	return w, nil
}

func (w *Workflow) ID() string { return w.id }

func (w *Workflow) reset(upload models.ImageFile) {
	w.originalName = upload.Name
	w.history = NewHistory()
	w.history.Reset(ImageVersion{Label: "Original", Image: upload})
	w.outfit = NewOutfit()
	w.variations = nil
	w.refinement = RefinementState{}
	w.status = ""
	w.errorMessage = ""
}

// mutate runs a synchronous action. Failures become the displayed error.
func (w *Workflow) mutate(action func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if err := action(); err != nil {
		w.errorMessage = UserMessage(err)
		return err
	}
	w.errorMessage = ""
	return nil
}

// StartOver discards everything and begins again from a new upload.
func (w *Workflow) StartOver(upload models.ImageFile) error {
	return w.mutate(func() error {
		if upload.Empty() {
			return ErrNoImage
		}
		w.reset(upload)
		return nil
	})
}

func (w *Workflow) Undo() error {
	return w.mutate(func() error {
		if !w.history.Undo() {
			return ErrNothingToUndo
		}
		w.outfit.ResetApplied()
		return nil
	})
}

func (w *Workflow) Redo() error {
	return w.mutate(func() error {
		if !w.history.Redo() {
			return ErrNothingToRedo
		}
		w.outfit.ResetApplied()
		return nil
	})
}

func (w *Workflow) AddItem(category models.ClothingCategory) (models.ClothingItem, error) {
	var item models.ClothingItem
	err := w.mutate(func() (err error) {
		item, err = w.outfit.Add(category)
		return err
	})
	return item, err
}

func (w *Workflow) UpdateItem(id string, patch ItemPatch) (models.ClothingItem, error) {
	var item models.ClothingItem
	err := w.mutate(func() (err error) {
		item, err = w.outfit.Update(id, patch)
		return err
	})
	return item, err
}

func (w *Workflow) RemoveItem(id string) error {
	return w.mutate(func() error {
		return w.outfit.Remove(id)
	})
}

func (w *Workflow) BeginPlacement(id string) error {
	return w.mutate(func() error {
		return w.outfit.BeginPlacement(id)
	})
}

func (w *Workflow) CancelPlacement() error {
	return w.mutate(func() error {
		w.outfit.CancelPlacement()
		return nil
	})
}

// PlaceActiveItem converts a click on the rendered image into a placement in
// the current image's natural resolution. natural may be zero, in which case
// the size is read from the image header.
func (w *Workflow) PlaceActiveItem(clickX, clickY float64, rendered, natural models.Size) (models.ClothingItem, error) {
	var item models.ClothingItem
	err := w.mutate(func() error {
		if natural.Width <= 0 || natural.Height <= 0 {
			current, ok := w.history.Current()
			if !ok {
				return ErrNoImage
			}
			size, err := services.ImageDimensions(current.Image)
			if err != nil {
				return err
			}
			natural = size
		}
		point, err := ScaleToNatural(clickX, clickY, rendered, natural)
		if err != nil {
			return err
		}
		item, err = w.outfit.Place(point)
		return err
	})
	return item, err
}

// ConfirmOutfit keeps the applied result and clears the item list.
func (w *Workflow) ConfirmOutfit() error {
	return w.mutate(func() error {
		if !w.outfit.Applied() {
			return ErrOutfitNotApplied
		}
		w.outfit.Confirm()
		return nil
	})
}

// DiscardOutfit drops the applied result from the history, so redo cannot
// bring it back, and unlocks the items for editing.
func (w *Workflow) DiscardOutfit() error {
	return w.mutate(func() error {
		if !w.outfit.Applied() {
			return ErrOutfitNotApplied
		}
		w.history.Drop()
		w.outfit.ResetApplied()
		return nil
	})
}

func (w *Workflow) DiscardVariations() error {
	return w.mutate(func() error {
		if w.variations == nil {
			return ErrNoVariations
		}
		w.variations = nil
		w.refinement = RefinementState{}
		return nil
	})
}

// SelectVariation makes a generated variation the next history version.
func (w *Workflow) SelectVariation(index int) error {
	return w.mutate(func() error {
		image, err := w.variationLocked(index)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("%s %d", kindLabel(w.variations.Kind), index+1)
		w.history.Append(ImageVersion{Label: label, Image: image.File(w.versionName(image.MIMEType))})
		w.variations = nil
		w.refinement = RefinementState{}
		w.moveOnFromOutfit()
		return nil
	})
}

func (w *Workflow) OpenRefinement(index int) error {
	return w.mutate(func() error {
		if _, err := w.variationLocked(index); err != nil {
			return err
		}
		w.refinement = RefinementState{Open: true, Index: index}
		return nil
	})
}

func (w *Workflow) CloseRefinement() error {
	return w.mutate(func() error {
		w.refinement = RefinementState{}
		return nil
	})
}

func (w *Workflow) variationLocked(index int) (services.GeneratedImage, error) {
	if w.variations == nil {
		return services.GeneratedImage{}, ErrNoVariations
	}
	if index < 0 || index >= len(w.variations.Images) {
		return services.GeneratedImage{}, ErrVariationIndex
	}
	return w.variations.Images[index], nil
}

// moveOnFromOutfit treats building on an applied outfit as confirming it.
func (w *Workflow) moveOnFromOutfit() {
	if w.outfit.Applied() {
		w.outfit.Confirm()
	}
}

func (w *Workflow) currentLocked() (models.ImageFile, error) {
	current, ok := w.history.Current()
	if !ok {
		return models.ImageFile{}, ErrNoImage
	}
	return current.Image, nil
}

func (w *Workflow) versionName(mimeType string) string {
	stem := strings.TrimSuffix(w.originalName, filepath.Ext(w.originalName))
	if stem == "" {
		stem = "image"
	}
	return stem + extensionFor(mimeType, filepath.Ext(w.originalName))
}

// operation is one remote generation. prepare runs under the lock and
// captures inputs; call runs unlocked; apply runs under the lock on success.
type operation struct {
	kind     models.GenerationKind
	status   string
	contexts []string
	prepare  func() error
	call     func(ctx context.Context) (*services.Generation, error)
	apply    func(generation *services.Generation)
}

func (w *Workflow) run(ctx context.Context, op operation) error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if op.prepare != nil {
		if err := op.prepare(); err != nil {
			w.errorMessage = UserMessage(err)
			w.mu.Unlock()
			return err
		}
	}
	w.busy = true
	w.status = op.status
	w.errorMessage = ""
	w.mu.Unlock()

	// issued requests are not cancellable, a dropped client does not abort them
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	fmt.Printf("[Session: %s] %s\n", w.id, op.status)
	generation, err := op.call(ctx)
	w.record(ctx, op, started, generation, err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.status = ""
	if err != nil {
		fmt.Printf("[Session: %s] %s failed: %v\n", w.id, op.kind, err)
		if !expected(err) {
			sentry.CaptureException(fmt.Errorf("[Session: %s] %s generation: %w", w.id, op.kind, err))
		}
		w.errorMessage = UserMessage(err)
		return err
	}
	op.apply(generation)
	return nil
}

func (w *Workflow) record(ctx context.Context, op operation, started time.Time, generation *services.Generation, err error) {
	if w.recorder == nil {
		return
	}
	duration := time.Since(started).Seconds()
	record := &models.GenerationRecord{
		SessionID: w.id,
		Kind:      op.kind,
		Status:    "completed",
		Duration:  &duration,
		Contexts:  op.contexts,
	}
	if generation != nil {
		record.LLMModel = &generation.Model
		record.ImageCount = len(generation.Images)
		record.LLMInputTokenCount = services.Int32Pointer(generation.Usage.InputTokenCount)
		record.LLMOutputTokenCount = services.Int32Pointer(generation.Usage.OutputTokenCount)
		record.LLMThoughtsTokenCount = services.Int32Pointer(generation.Usage.ThoughtsTokenCount)
		record.LLMTotalTokenCount = services.Int32Pointer(generation.Usage.TotalTokenCount)
	}
	if err != nil {
		message := err.Error()
		record.Status = "failed"
		record.ErrorMessage = &message
	}
	if recordErr := w.recorder.RecordGeneration(ctx, record); recordErr != nil {
		fmt.Printf("[Session: %s] failed to record generation: %v\n", w.id, recordErr)
		sentry.CaptureException(recordErr)
	}
}

// ApplyOutfit composes every placed item onto the current image.
func (w *Workflow) ApplyOutfit(ctx context.Context) error {
	var base models.ImageFile
	var items []models.ClothingItem
	return w.run(ctx, operation{
		kind:   models.KindOutfit,
		status: "Applying outfit...",
		prepare: func() (err error) {
			if w.outfit.Applied() {
				return ErrOutfitLocked
			}
			if len(w.outfit.Items()) == 0 {
				return services.ErrNoValidItems
			}
			if !w.outfit.CanApply() {
				return ErrOutfitIncomplete
			}
			items = w.outfit.Qualifying()
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.ComposeOutfit(ctx, base, items)
		},
		apply: func(generation *services.Generation) {
			image := generation.Images[0]
			w.history.Append(ImageVersion{Label: "Outfit", Image: image.File(w.versionName(image.MIMEType))})
			w.outfit.MarkApplied()
		},
	})
}

func (w *Workflow) setVariations(kind models.GenerationKind) func(*services.Generation) {
	return func(generation *services.Generation) {
		w.variations = &VariationSet{Kind: kind, Images: generation.Images, Captions: generation.Captions}
		w.refinement = RefinementState{}
	}
}

// GenerateVariations renders the current image in each scene and captions
// the set. Images and captions succeed or fail together.
func (w *Workflow) GenerateVariations(ctx context.Context, contexts []string, clothing string) error {
	var base models.ImageFile
	var scenes []string
	for _, c := range contexts {
		if s := strings.TrimSpace(c); s != "" {
			scenes = append(scenes, s)
		}
	}
	return w.run(ctx, operation{
		kind:     models.KindContexts,
		status:   fmt.Sprintf("Generating %d scene variations...", len(scenes)),
		contexts: scenes,
		prepare: func() (err error) {
			if len(scenes) == 0 {
				return ErrNoContexts
			}
			if len(scenes) > maxContexts {
				return fmt.Errorf("%w: at most %d scenes", ErrNoContexts, maxContexts)
			}
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			generation, err := w.generator.GenerateContextVariations(ctx, base, scenes)
			if err != nil {
				return nil, err
			}
			captions, err := w.generator.GenerateCaptions(ctx, clothing, scenes)
			if err != nil {
				return nil, err
			}
			generation.Captions = captions.Captions
			generation.Usage.Add(captions.Usage)
			return generation, nil
		},
		apply: w.setVariations(models.KindContexts),
	})
}

func (w *Workflow) CompositeBackground(ctx context.Context, background models.ImageFile) error {
	var base models.ImageFile
	return w.run(ctx, operation{
		kind:   models.KindBackground,
		status: "Placing you in the new scene...",
		prepare: func() (err error) {
			if background.Empty() {
				return ErrNoImage
			}
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.CompositeBackground(ctx, base, background)
		},
		apply: w.setVariations(models.KindBackground),
	})
}

func (w *Workflow) StyleTransfer(ctx context.Context, styleReference models.ImageFile, pose string) error {
	var base models.ImageFile
	return w.run(ctx, operation{
		kind:   models.KindAnime,
		status: "Drawing anime version...",
		prepare: func() (err error) {
			if styleReference.Empty() {
				return ErrNoImage
			}
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.StyleTransfer(ctx, base, styleReference, pose)
		},
		apply: w.setVariations(models.KindAnime),
	})
}

func (w *Workflow) GenerateAngles(ctx context.Context) error {
	var base models.ImageFile
	return w.run(ctx, operation{
		kind:   models.KindAngles,
		status: "Rendering camera angles...",
		prepare: func() (err error) {
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.GenerateAngles(ctx, base)
		},
		apply: w.setVariations(models.KindAngles),
	})
}

// SubmitRefinement edits the variation open in the refinement dialog and
// replaces it in place.
func (w *Workflow) SubmitRefinement(ctx context.Context, instruction string) error {
	var target models.ImageFile
	var index int
	return w.run(ctx, operation{
		kind:   models.KindRefine,
		status: "Refining variation...",
		prepare: func() (err error) {
			if !w.refinement.Open {
				return ErrRefinementClosed
			}
			if strings.TrimSpace(instruction) == "" {
				return ErrEmptyInstruction
			}
			index = w.refinement.Index
			variation, err := w.variationLocked(index)
			if err != nil {
				return err
			}
			target = variation.File(w.versionName(variation.MIMEType))
			return nil
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.Refine(ctx, target, instruction)
		},
		apply: func(generation *services.Generation) {
			w.variations.Images[index] = generation.Images[0]
			w.refinement = RefinementState{}
		},
	})
}

// RefineCurrent edits the current history image and appends the result.
func (w *Workflow) RefineCurrent(ctx context.Context, instruction string) error {
	var base models.ImageFile
	return w.run(ctx, operation{
		kind:   models.KindRefine,
		status: "Refining image...",
		prepare: func() (err error) {
			if strings.TrimSpace(instruction) == "" {
				return ErrEmptyInstruction
			}
			base, err = w.currentLocked()
			return err
		},
		call: func(ctx context.Context) (*services.Generation, error) {
			return w.generator.Refine(ctx, base, instruction)
		},
		apply: func(generation *services.Generation) {
			image := generation.Images[0]
			w.history.Append(ImageVersion{Label: "Refined", Image: image.File(w.versionName(image.MIMEType))})
			w.moveOnFromOutfit()
		},
	})
}

// Download returns the current image named after the original upload.
func (w *Workflow) Download(prefix string) (models.ImageFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	current, err := w.currentLocked()
	if err != nil {
		return models.ImageFile{}, err
	}
	current.Name = prefix + w.versionName(current.MIMEType)
	return current, nil
}

func (w *Workflow) CurrentImage() (models.ImageFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLocked()
}

func (w *Workflow) OriginalImage() (models.ImageFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	original, ok := w.history.Original()
	if !ok {
		return models.ImageFile{}, ErrNoImage
	}
	return original.Image, nil
}

func (w *Workflow) Variation(index int) (services.GeneratedImage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.variationLocked(index)
}

func (w *Workflow) Snapshot() models.StateOut {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := models.StateOut{
		SessionID:     w.id,
		OriginalName:  w.originalName,
		History:       w.history.Labels(),
		Cursor:        w.history.Cursor(),
		CanUndo:       w.history.CanUndo(),
		CanRedo:       w.history.CanRedo(),
		Items:         []models.ClothingItemOut{},
		OutfitApplied: w.outfit.Applied(),
		CanApply:      w.outfit.CanApply(),
		Busy:          w.busy,
		Status:        w.status,
		Error:         w.errorMessage,
	}
	for _, item := range w.outfit.Items() {
		state.Items = append(state.Items, models.ClothingItemOut{
			ID:         item.ID,
			Category:   item.Category,
			SourceMode: item.SourceMode,
			Text:       item.Text,
			HasImage:   item.Image != nil,
			Placement:  item.Placement,
			Ready:      item.Qualifies(),
		})
	}
	if id := w.outfit.ActivePlacementID(); id != "" {
		state.ActivePlacementID = &id
	}
	if w.variations != nil {
		state.Variations = &models.VariationsOut{
			Kind:     w.variations.Kind,
			Count:    len(w.variations.Images),
			Captions: w.variations.Captions,
		}
	}
	if w.refinement.Open {
		state.Refinement = models.RefinementOut{Open: true, Index: w.refinement.Index}
		if w.variations != nil && w.refinement.Index < len(w.variations.Captions) {
			caption := w.variations.Captions[w.refinement.Index]
			state.Refinement.Caption = &caption
		}
	}
	return state
}

func kindLabel(kind models.GenerationKind) string {
	switch kind {
	case models.KindContexts:
		return "Scene"
	case models.KindBackground:
		return "Background"
	case models.KindAnime:
		return "Anime"
	case models.KindAngles:
		return "Angle"
	}
	return "Variation"
}

// extensionFor keeps the original extension when it already matches the
// bytes and otherwise picks one for the media type.
func extensionFor(mimeType, original string) string {
	if original != "" && strings.HasPrefix(mime.TypeByExtension(strings.ToLower(original)), mimeType) {
		return original
	}
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return original
}

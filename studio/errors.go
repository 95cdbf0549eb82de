package studio

import (
	"errors"
	"fmt"

	"lookstudioapi/services"
)

// UserMessage turns any failure into the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		blocked    *services.BlockedError
		stopped    *services.GenerationStoppedError
		noImage    *services.NoImageReturnedError
		conversion *services.ConversionError
		encoding   *services.EncodingError
	)
	switch {
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	case errors.As(err, &blocked):
		return fmt.Sprintf("The request was blocked by content safety filters (%s). Try a different photo or description.", blocked.Reason)
	case errors.As(err, &stopped):
		return fmt.Sprintf("Generation stopped before an image was produced (%s). Please try again.", stopped.Reason)
	case errors.As(err, &noImage):
		if noImage.Text != "" {
			return "The model did not return an image. It replied: " + noImage.Text
		}
		return "The model did not return an image. Please try again."
	case errors.As(err, &conversion):
		return "This image format could not be converted. Please use a PNG, JPEG, WEBP or HEIC image."
	case errors.As(err, &encoding):
		return "The image could not be prepared for sending. Please try another file."
	case errors.Is(err, services.ErrNoValidItems):
		return "Add at least one clothing item with an image or description and place it on the photo."
	case IsPrecondition(err):
		return err.Error()
	}
	return "Something went wrong: " + err.Error()
}

// expected reports failures that come from the model or the user's input
// rather than from the service itself.
func expected(err error) bool {
	var (
		blocked    *services.BlockedError
		stopped    *services.GenerationStoppedError
		noImage    *services.NoImageReturnedError
		conversion *services.ConversionError
	)
	return errors.As(err, &blocked) || errors.As(err, &stopped) || errors.As(err, &noImage) ||
		errors.As(err, &conversion) || IsPrecondition(err)
}

var preconditionErrors = []error{
	ErrBusy,
	ErrNoImage,
	ErrNothingToUndo,
	ErrNothingToRedo,
	ErrNoVariations,
	ErrVariationIndex,
	ErrRefinementClosed,
	ErrEmptyInstruction,
	ErrNoContexts,
	ErrOutfitLocked,
	ErrOutfitNotApplied,
	ErrOutfitIncomplete,
	ErrItemNotFound,
	ErrNoActivePlacement,
	ErrInvalidCategory,
	ErrInvalidSourceMode,
	ErrInvalidRenderedSize,
	services.ErrNoValidItems,
}

// IsPrecondition reports errors caused by the current studio state or input.
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

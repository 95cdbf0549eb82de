package services

import (
	"fmt"
	"strings"

	"lookstudioapi/languageutil"
	"lookstudioapi/models"
)

// CameraAngles are the viewpoints rendered by a multi-angle request, in output order.
var CameraAngles = []string{
	"front view",
	"three-quarter view from the left",
	"left side profile",
	"back view",
	"right side profile",
	"three-quarter view from the right",
}

// FallbackCaptions replace captions the model answered with in an unusable shape.
var FallbackCaptions = []string{
	"Styled for every scene.",
	"One outfit, endless stories.",
	"Wherever the day takes me.",
	"New look, same me.",
}

const preserveRules = "Keep the person's face, identity, skin tone, hair, body proportions and expression exactly the same."

// BuildOutfitInstruction describes each placed item. The person photo is image 1
// and uploaded references follow in item order starting at image 2.
func BuildOutfitInstruction(items []models.ClothingItem) string {
	var sb strings.Builder
	sb.WriteString("Edit image 1, a photo of a person, so that they wear the clothing items listed below. ")
	sb.WriteString("Coordinates are pixel positions in image 1 measured from its top-left corner and mark where each item sits on the body.\n")

	reference := 2
	for i, item := range items {
		label := languageutil.Title(string(item.Category))
		var value string
		if item.SourceMode == models.SourceImage {
			value = fmt.Sprintf("the garment shown in image %d", reference)
			reference++
		} else {
			value = fmt.Sprintf("%q", strings.TrimSpace(*item.Text))
		}
		fmt.Fprintf(&sb, "%d. %s: %s, placed at (%d, %d).\n", i+1, label, value, item.Placement.X, item.Placement.Y)
	}

	sb.WriteString("Rules:\n")
	sb.WriteString("- Layer garments realistically: outerwear over tops, tops over or tucked into bottoms, shoes on the feet, accessories on top of everything.\n")
	sb.WriteString("- Replace only the clothing covering the region of each item; leave the rest of the existing outfit untouched.\n")
	sb.WriteString("- " + preserveRules + "\n")
	sb.WriteString("- Keep the pose, framing, lighting and background of image 1.\n")
	sb.WriteString("- Return one photorealistic edited image.")
	return sb.String()
}

func BuildContextInstruction(context string) string {
	return fmt.Sprintf("Isolate the person from this image and place them in the following setting: %s. "+
		"%s Keep the exact same pose and the exact same outfit. "+
		"Relight the person to match the light direction, color and shadows of the new setting. Return one photorealistic image.",
		strings.TrimSpace(context), preserveRules)
}

func BuildBackgroundInstruction() string {
	return "Isolate the person from image 1 and composite them onto the background shown in image 2. " +
		preserveRules + " Keep the outfit and pose. Match the scale and perspective of the background, and relight the person " +
		"to match the background's lighting direction and color temperature, including shadows. " +
		"Return one photorealistic image."
}

// BuildStyleTransferInstruction takes identity from image 1 and the art style
// and scene from image 2.
func BuildStyleTransferInstruction(pose string) string {
	poseRule := "Keep the original pose."
	if p := strings.TrimSpace(pose); p != "" {
		poseRule = fmt.Sprintf("Pose the character as follows: %s.", p)
	}
	return "Extract the facial features and hair of the person in image 1. " +
		"Extract the line work, color palette and shading style of the illustration in image 2. " +
		"Draw a new character with those features in exactly that style. " + poseRule +
		" Composite the character into the scene of image 2 so it looks drawn by the same artist. Return one illustration."
}

func BuildAngleInstruction(angle string) string {
	return fmt.Sprintf("Show the same person wearing exactly the same outfit from a %s. "+
		"%s Keep the background style consistent with the original. Return one photorealistic image.", angle, preserveRules)
}

func BuildRefineInstruction(instruction string) string {
	return fmt.Sprintf("Subtly edit only the person in this image following the instruction: %s. "+
		"Keep the clothing, background and lighting exactly as they are, and leave everything the instruction does not mention unchanged. "+
		"Return one photorealistic image.", strings.TrimSpace(instruction))
}

func BuildCaptionPrompt(clothing string, contexts []string) string {
	subject := "an outfit"
	if c := strings.TrimSpace(clothing); c != "" {
		subject = fmt.Sprintf("an outfit (%s)", c)
	}
	return fmt.Sprintf("Write 4 to 5 short, catchy social media captions for a photo series of %s shown in these settings: %s. "+
		"Each caption ends with a few relevant hashtags and includes at least one emoji. "+
		"Return JSON with a single field \"captions\" holding the caption strings.",
		subject, strings.Join(contexts, "; "))
}

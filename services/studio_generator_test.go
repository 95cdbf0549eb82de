package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"lookstudioapi/models"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   [][]*genai.Content
	models  []string
	configs []*genai.GenerateContentConfig
	respond func(instruction string, call int) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, contents)
	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	f.mu.Unlock()

	parts := contents[0].Parts
	return f.respond(parts[len(parts)-1].Text, call)
}

// echoImage answers each request with an image whose bytes are the instruction text.
func echoImage(instruction string, _ int) (*genai.GenerateContentResponse, error) {
	return imageResponse([]byte(instruction)), nil
}

func newTestClient(respond func(string, int) (*genai.GenerateContentResponse, error)) (*GeminiStudioClient, *fakeModels) {
	fake := &fakeModels{respond: respond}
	return &GeminiStudioClient{Models: fake, ImageModel: Flash25Image, TextModel: Flash25}, fake
}

func testPerson(t *testing.T) models.ImageFile {
	return models.ImageFile{Name: "me.png", MIMEType: "image/png", Data: encodeTestImage(t, imaging.PNG, 4, 4)}
}

func strPtr(s string) *string { return &s }

func TestComposeOutfitUsesOnlyQualifyingItems(t *testing.T) {
	client, fake := newTestClient(echoImage)
	jacket := models.ImageFile{Name: "jacket.jpg", MIMEType: "image/jpeg", Data: encodeTestImage(t, imaging.JPEG, 2, 2)}
	items := []models.ClothingItem{
		{ID: "1", Category: models.CategoryOuterwear, SourceMode: models.SourceImage, Image: &jacket, Placement: &models.Point{X: 600, Y: 800}},
		{ID: "2", Category: models.CategoryShoes, SourceMode: models.SourceText, Text: strPtr("white sneakers"), Placement: &models.Point{X: 610, Y: 1500}},
		{ID: "3", Category: models.CategoryHeadwear, SourceMode: models.SourceText, Text: strPtr("red beanie")},
		{ID: "4", Category: models.CategoryBottom, SourceMode: models.SourceImage, Placement: &models.Point{X: 1, Y: 1}},
	}

	generation, err := client.ComposeOutfit(context.Background(), testPerson(t), items)
	require.NoError(t, err)
	require.Len(t, generation.Images, 1)
	assert.Equal(t, Flash25Image.String(), generation.Model)
	assert.Equal(t, int32(33), generation.Usage.TotalTokenCount)

	require.Len(t, fake.calls, 1)
	parts := fake.calls[0][0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)

	instruction := parts[2].Text
	assert.Contains(t, instruction, "Outerwear: the garment shown in image 2, placed at (600, 800)")
	assert.Contains(t, instruction, `Shoes: "white sneakers", placed at (610, 1500)`)
	assert.NotContains(t, instruction, "beanie")
	assert.NotContains(t, instruction, "Bottom")
	assert.Equal(t, []string{"IMAGE", "TEXT"}, fake.configs[0].ResponseModalities)
}

func TestComposeOutfitWithoutQualifyingItems(t *testing.T) {
	client, fake := newTestClient(echoImage)
	items := []models.ClothingItem{
		{ID: "1", Category: models.CategoryTop, SourceMode: models.SourceText, Text: strPtr("   "), Placement: &models.Point{}},
	}

	_, err := client.ComposeOutfit(context.Background(), testPerson(t), items)
	assert.ErrorIs(t, err, ErrNoValidItems)
	assert.Empty(t, fake.calls)
}

func TestGenerateContextVariationsKeepsOrder(t *testing.T) {
	client, fake := newTestClient(echoImage)
	contexts := []string{"a beach at sunset", "a snowy street", "an office"}

	generation, err := client.GenerateContextVariations(context.Background(), testPerson(t), contexts)
	require.NoError(t, err)
	require.Len(t, generation.Images, 3)
	for i, c := range contexts {
		assert.Contains(t, string(generation.Images[i].Data), c)
	}
	assert.Len(t, fake.calls, 3)
	assert.Equal(t, int32(99), generation.Usage.TotalTokenCount)
}

func TestGenerateContextVariationsAllOrNothing(t *testing.T) {
	client, _ := newTestClient(func(instruction string, call int) (*genai.GenerateContentResponse, error) {
		if strings.Contains(instruction, "snowy") {
			return textResponse("no snow today", genai.FinishReasonStop), nil
		}
		return imageResponse([]byte("ok")), nil
	})

	generation, err := client.GenerateContextVariations(context.Background(), testPerson(t), []string{"beach", "snowy street", "office"})
	assert.Nil(t, generation)
	var noImage *NoImageReturnedError
	require.True(t, errors.As(err, &noImage))
	assert.Equal(t, "no snow today", noImage.Text)
}

func TestGenerateAnglesProducesSixInOrder(t *testing.T) {
	client, fake := newTestClient(echoImage)

	generation, err := client.GenerateAngles(context.Background(), testPerson(t))
	require.NoError(t, err)
	require.Len(t, generation.Images, len(CameraAngles))
	assert.Len(t, generation.Images, 6)
	for i, angle := range CameraAngles {
		assert.Contains(t, string(generation.Images[i].Data), angle)
	}
	assert.Len(t, fake.calls, 6)
}

func TestCompositeBackgroundReturnsSingleImage(t *testing.T) {
	client, fake := newTestClient(echoImage)
	scene := models.ImageFile{Name: "scene.bmp", MIMEType: "image/bmp", Data: encodeTestImage(t, imaging.BMP, 2, 2)}

	generation, err := client.CompositeBackground(context.Background(), testPerson(t), scene)
	require.NoError(t, err)
	assert.Len(t, generation.Images, 1)

	parts := fake.calls[0][0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType, "bmp scene is re-encoded before sending")
}

func TestStyleTransferPose(t *testing.T) {
	client, fake := newTestClient(echoImage)
	reference := models.ImageFile{Name: "ref.webp", MIMEType: "image/webp", Data: []byte("webp-bytes")}

	_, err := client.StyleTransfer(context.Background(), testPerson(t), reference, "jumping")
	require.NoError(t, err)
	parts := fake.calls[0][0].Parts
	assert.Equal(t, "image/webp", parts[1].InlineData.MIMEType)
	instruction := parts[2].Text
	assert.Contains(t, instruction, "jumping")
	assert.Contains(t, instruction, "facial features and hair of the person in image 1")
	assert.Contains(t, instruction, "line work, color palette and shading style")
	assert.Contains(t, instruction, "into the scene of image 2")
	assert.NotContains(t, instruction, "outfit")
}

func TestRefineBlocked(t *testing.T) {
	client, _ := newTestClient(func(string, int) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonOther}}, nil
	})

	_, err := client.Refine(context.Background(), testPerson(t), "make it red")
	var blocked *BlockedError
	assert.True(t, errors.As(err, &blocked))
}

func TestRefineTransportError(t *testing.T) {
	client, _ := newTestClient(func(string, int) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("connection reset")
	})

	_, err := client.Refine(context.Background(), testPerson(t), "brighter")
	assert.ErrorContains(t, err, "connection reset")
}

func TestGenerateCaptions(t *testing.T) {
	client, fake := newTestClient(func(string, int) (*genai.GenerateContentResponse, error) {
		return textResponse(`{"captions": ["Sun's out", "City mode"]}`, genai.FinishReasonStop), nil
	})

	generation, err := client.GenerateCaptions(context.Background(), "denim jacket", []string{"beach", "city"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sun's out", "City mode"}, generation.Captions)
	assert.Equal(t, Flash25.String(), fake.models[0])
	assert.Equal(t, "application/json", fake.configs[0].ResponseMIMEType)
	assert.Contains(t, fake.calls[0][0].Parts[0].Text, "denim jacket")
}

func TestGenerateCaptionsFallsBack(t *testing.T) {
	client, _ := newTestClient(func(string, int) (*genai.GenerateContentResponse, error) {
		return textResponse("Sure! Here are captions...", genai.FinishReasonStop), nil
	})

	generation, err := client.GenerateCaptions(context.Background(), "", []string{"beach"})
	require.NoError(t, err)
	assert.Equal(t, FallbackCaptions, generation.Captions)
}

func TestFanOutRespectsInterval(t *testing.T) {
	client, fake := newTestClient(echoImage)
	client.Interval = 1

	generation, err := client.GenerateContextVariations(context.Background(), testPerson(t), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Len(t, generation.Images, 4)
	assert.Len(t, fake.calls, 4)
}

func TestInstructionTemplates(t *testing.T) {
	client, fake := newTestClient(echoImage)
	ctx := context.Background()
	scene := models.ImageFile{Name: "scene.png", MIMEType: "image/png", Data: encodeTestImage(t, imaging.PNG, 2, 2)}

	_, err := client.GenerateContextVariations(ctx, testPerson(t), []string{"rainy street"})
	require.NoError(t, err)
	_, err = client.CompositeBackground(ctx, testPerson(t), scene)
	require.NoError(t, err)
	_, err = client.Refine(ctx, testPerson(t), "add a smile")
	require.NoError(t, err)

	lastText := func(call int) string {
		parts := fake.calls[call][0].Parts
		return parts[len(parts)-1].Text
	}

	contextText := lastText(0)
	assert.Contains(t, contextText, "Isolate the person")
	assert.Contains(t, contextText, "rainy street")
	assert.Contains(t, contextText, "same pose")
	assert.Contains(t, contextText, "same outfit")
	assert.Contains(t, contextText, "Relight")

	backgroundText := lastText(1)
	assert.Contains(t, backgroundText, "Isolate the person")
	assert.Contains(t, backgroundText, "color temperature")
	assert.Contains(t, backgroundText, "relight")

	refineText := lastText(2)
	assert.Contains(t, refineText, "add a smile")
	assert.Contains(t, refineText, "only the person")
	assert.Contains(t, refineText, "clothing, background and lighting exactly as they are")
}

func TestCaptionPromptAsksForHashtagsAndEmoji(t *testing.T) {
	prompt := BuildCaptionPrompt("linen suit", []string{"wedding", "rooftop bar"})
	assert.Contains(t, prompt, "linen suit")
	assert.Contains(t, prompt, "wedding; rooftop bar")
	assert.Contains(t, prompt, "4 to 5")
	assert.Contains(t, prompt, "hashtags")
	assert.Contains(t, prompt, "emoji")
	assert.Contains(t, prompt, `"captions"`)
}

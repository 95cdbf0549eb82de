package services

import (
	"context"
	"fmt"
	"time"

	"lookstudioapi/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Generation is what one studio operation produced. Single-image operations
// still return a list so every caller handles results the same way.
type Generation struct {
	Model    string
	Images   []GeneratedImage
	Captions []string
	Usage    Usage
}

type StudioGenerator interface {
	ComposeOutfit(ctx context.Context, base models.ImageFile, items []models.ClothingItem) (*Generation, error)
	GenerateContextVariations(ctx context.Context, base models.ImageFile, contexts []string) (*Generation, error)
	CompositeBackground(ctx context.Context, person, background models.ImageFile) (*Generation, error)
	StyleTransfer(ctx context.Context, person, styleReference models.ImageFile, pose string) (*Generation, error)
	GenerateAngles(ctx context.Context, base models.ImageFile) (*Generation, error)
	Refine(ctx context.Context, image models.ImageFile, instruction string) (*Generation, error)
	GenerateCaptions(ctx context.Context, clothing string, contexts []string) (*Generation, error)
}

type GeminiStudioClient struct {
	Models     ContentGenerator
	ImageModel LLMModelName
	TextModel  LLMModelName
	// Interval spaces sibling requests of a batch; zero disables the limiter.
	Interval time.Duration
}

func NewGeminiStudioClient(ctx context.Context, apiKey string, imageModel, textModel LLMModelName, interval time.Duration) (*GeminiStudioClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiStudioClient{
		Models:     client.Models,
		ImageModel: imageModel,
		TextModel:  textModel,
		Interval:   interval,
	}, nil
}

func (client *GeminiStudioClient) imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		CandidateCount:     1,
		Temperature:        floatPointer(1),
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
}

func (client *GeminiStudioClient) generateImage(ctx context.Context, parts []*genai.Part, instruction string) (GeneratedImage, Usage, error) {
	request := append(append([]*genai.Part{}, parts...), genai.NewPartFromText(instruction))
	result, err := client.Models.GenerateContent(ctx, client.ImageModel.String(), []*genai.Content{{Parts: request}}, client.imageConfig())
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return GeneratedImage{}, Usage{}, fmt.Errorf("generate content: %w", err)
	}
	usage := usageOf(result)
	image, err := InterpretResponse(result).Result()
	return image, usage, err
}

func inlineParts(files ...models.ImageFile) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(files))
	for _, file := range files {
		part, err := inlinePart(file)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (client *GeminiStudioClient) single(ctx context.Context, instruction string, files ...models.ImageFile) (*Generation, error) {
	parts, err := inlineParts(files...)
	if err != nil {
		return nil, err
	}
	image, usage, err := client.generateImage(ctx, parts, instruction)
	if err != nil {
		return nil, err
	}
	return &Generation{Model: client.ImageModel.String(), Images: []GeneratedImage{image}, Usage: usage}, nil
}

// fanOut issues one request per instruction against the same base image.
// Results keep instruction order and the first failure fails the batch.
func (client *GeminiStudioClient) fanOut(ctx context.Context, base models.ImageFile, instructions []string) (*Generation, error) {
	basePart, err := inlinePart(base)
	if err != nil {
		return nil, err
	}
	images := make([]GeneratedImage, len(instructions))
	usages := make([]Usage, len(instructions))
	eg, egCtx := errgroup.WithContext(ctx)

	var limiter *rate.Limiter
	if client.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(client.Interval), 2)
	}

	for i, instruction := range instructions {
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					return err
				}
			}
			image, usage, err := client.generateImage(egCtx, []*genai.Part{basePart}, instruction)
			if err != nil {
				return fmt.Errorf("variation %d failed: %w", i+1, err)
			}
			images[i] = image
			usages[i] = usage
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	generation := &Generation{Model: client.ImageModel.String(), Images: images}
	for _, usage := range usages {
		generation.Usage.Add(usage)
	}
	return generation, nil
}

func (client *GeminiStudioClient) ComposeOutfit(ctx context.Context, base models.ImageFile, items []models.ClothingItem) (*Generation, error) {
	var qualifying []models.ClothingItem
	for _, item := range items {
		if item.Qualifies() {
			qualifying = append(qualifying, item)
		}
	}
	if len(qualifying) == 0 {
		return nil, ErrNoValidItems
	}
	files := []models.ImageFile{base}
	for _, item := range qualifying {
		if item.SourceMode == models.SourceImage {
			files = append(files, *item.Image)
		}
	}
	return client.single(ctx, BuildOutfitInstruction(qualifying), files...)
}

func (client *GeminiStudioClient) GenerateContextVariations(ctx context.Context, base models.ImageFile, contexts []string) (*Generation, error) {
	instructions := make([]string, len(contexts))
	for i, c := range contexts {
		instructions[i] = BuildContextInstruction(c)
	}
	return client.fanOut(ctx, base, instructions)
}

func (client *GeminiStudioClient) CompositeBackground(ctx context.Context, person, background models.ImageFile) (*Generation, error) {
	return client.single(ctx, BuildBackgroundInstruction(), person, background)
}

func (client *GeminiStudioClient) StyleTransfer(ctx context.Context, person, styleReference models.ImageFile, pose string) (*Generation, error) {
	return client.single(ctx, BuildStyleTransferInstruction(pose), person, styleReference)
}

func (client *GeminiStudioClient) GenerateAngles(ctx context.Context, base models.ImageFile) (*Generation, error) {
	instructions := make([]string, len(CameraAngles))
	for i, angle := range CameraAngles {
		instructions[i] = BuildAngleInstruction(angle)
	}
	return client.fanOut(ctx, base, instructions)
}

func (client *GeminiStudioClient) Refine(ctx context.Context, image models.ImageFile, instruction string) (*Generation, error) {
	return client.single(ctx, BuildRefineInstruction(instruction), image)
}

var captionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"captions": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"captions"},
}

// GenerateCaptions asks the text model for captions. A malformed answer
// degrades to FallbackCaptions instead of failing.
func (client *GeminiStudioClient) GenerateCaptions(ctx context.Context, clothing string, contexts []string) (*Generation, error) {
	prompt := BuildCaptionPrompt(clothing, contexts)
	result, err := client.Models.GenerateContent(ctx, client.TextModel.String(), []*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(prompt)}}}, &genai.GenerateContentConfig{
		CandidateCount:   1,
		Temperature:      floatPointer(0.9),
		ResponseMIMEType: "application/json",
		ResponseSchema:   captionSchema,
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("generate captions: %w", err)
	}
	if result != nil {
		if blocked := blockOf(result); blocked != nil {
			return nil, blocked
		}
	}
	return &Generation{
		Model:    client.TextModel.String(),
		Captions: ParseCaptions(textOf(result)),
		Usage:    usageOf(result),
	}, nil
}

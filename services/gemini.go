package services

import (
	"context"
	"fmt"
	"strings"

	"lookstudioapi/models"

	"google.golang.org/genai"
)

// LLMModelName is the Gemini model a request is sent to.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
	Flash25Image
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash25Image:
		return "gemini-2.5-flash-image-preview"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

// ParseLLMModelName maps a model identifier back to its enum value.
func ParseLLMModelName(name string) (LLMModelName, bool) {
	for _, m := range []LLMModelName{Pro25, Flash25, FlashLite25, Flash20, Flash25Image} {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

func floatPointer(f float32) *float32 {
	return &f
}

func Int32Pointer(i int32) *int32 {
	return &i
}

// ContentGenerator is the slice of the genai client the studio needs; *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Usage struct {
	InputTokenCount    int32 `json:"input_token_count"`
	OutputTokenCount   int32 `json:"output_token_count"`
	ThoughtsTokenCount int32 `json:"thoughts_token_count"`
	TotalTokenCount    int32 `json:"total_token_count"`
}

func (u *Usage) Add(other Usage) {
	u.InputTokenCount += other.InputTokenCount
	u.OutputTokenCount += other.OutputTokenCount
	u.ThoughtsTokenCount += other.ThoughtsTokenCount
	u.TotalTokenCount += other.TotalTokenCount
}

func usageOf(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		fmt.Println("UsageMetadata is nil!")
		return Usage{}
	}
	usage := Usage{
		InputTokenCount:    resp.UsageMetadata.PromptTokenCount,
		OutputTokenCount:   resp.UsageMetadata.CandidatesTokenCount,
		ThoughtsTokenCount: resp.UsageMetadata.ThoughtsTokenCount,
		TotalTokenCount:    resp.UsageMetadata.TotalTokenCount,
	}
	fmt.Printf("Token usage input: %d output: %d thoughts: %d total: %d\n",
		usage.InputTokenCount, usage.OutputTokenCount, usage.ThoughtsTokenCount, usage.TotalTokenCount)
	return usage
}

type GeneratedImage struct {
	MIMEType string
	Data     []byte
}

func (g GeneratedImage) DataURI() string {
	return EncodeDataURI(g.MIMEType, g.Data)
}

// File names the generated bytes so they can enter the edit history.
func (g GeneratedImage) File(name string) models.ImageFile {
	return models.ImageFile{Name: name, MIMEType: g.MIMEType, Data: g.Data}
}

type OutcomeKind int

const (
	OutcomeImage OutcomeKind = iota
	OutcomeBlocked
	OutcomeStopped
	OutcomeEmpty
)

// GenerationOutcome is the classified result of one image request.
type GenerationOutcome struct {
	Kind    OutcomeKind
	Image   GeneratedImage
	Reason  string
	Message string
	Text    string
}

// Result returns the generated image or the error matching the outcome kind.
func (o GenerationOutcome) Result() (GeneratedImage, error) {
	switch o.Kind {
	case OutcomeImage:
		return o.Image, nil
	case OutcomeBlocked:
		return GeneratedImage{}, &BlockedError{Reason: o.Reason, Message: o.Message}
	case OutcomeStopped:
		return GeneratedImage{}, &GenerationStoppedError{Reason: o.Reason}
	case OutcomeEmpty:
		return GeneratedImage{}, &NoImageReturnedError{Text: o.Text}
	}
	return GeneratedImage{}, fmt.Errorf("unknown generation outcome %d", o.Kind)
}

func blockOf(resp *genai.GenerateContentResponse) *BlockedError {
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != genai.BlockedReasonUnspecified {
		fmt.Println("[Safety] prompt blocked:", pf.BlockReason, pf.BlockReasonMessage)
		return &BlockedError{Reason: string(pf.BlockReason), Message: pf.BlockReasonMessage}
	}
	for _, cand := range resp.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				fmt.Println("[Safety] rating blocked:", rating.Category, "probability:", rating.Probability)
				return &BlockedError{Reason: string(rating.Category)}
			}
		}
	}
	return nil
}

// InterpretResponse classifies a response in priority order: block reason,
// first inline image, abnormal finish reason, then no image at all.
func InterpretResponse(resp *genai.GenerateContentResponse) GenerationOutcome {
	if resp == nil {
		return GenerationOutcome{Kind: OutcomeEmpty}
	}
	if blocked := blockOf(resp); blocked != nil {
		return GenerationOutcome{Kind: OutcomeBlocked, Reason: blocked.Reason, Message: blocked.Message}
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			inline := part.InlineData
			if inline != nil && strings.HasPrefix(inline.MIMEType, "image/") && len(inline.Data) > 0 {
				return GenerationOutcome{Kind: OutcomeImage, Image: GeneratedImage{MIMEType: inline.MIMEType, Data: inline.Data}}
			}
		}
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			return GenerationOutcome{Kind: OutcomeStopped, Reason: string(cand.FinishReason)}
		}
	}
	return GenerationOutcome{Kind: OutcomeEmpty, Text: textOf(resp)}
}

// textOf joins the non-thought text parts of the first candidate.
func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

func inlinePart(file models.ImageFile) (*genai.Part, error) {
	transport, err := ToTransportPart(file)
	if err != nil {
		return nil, err
	}
	data, err := transport.Bytes()
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: transport.MIMEType, Data: data}}, nil
}

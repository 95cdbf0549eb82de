package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

func cleanAIResponseText(text string) string {
	cleanContent := strings.TrimSpace(text)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	return strings.TrimSpace(cleanContent)
}

// ParseCaptions reads the caption list out of a model answer. Anything that
// does not yield at least one caption falls back to FallbackCaptions.
func ParseCaptions(text string) []string {
	cleaned := cleanAIResponseText(text)

	var payload struct {
		Captions []string `json:"captions"`
	}
	var captions []string
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		captions = payload.Captions
	} else if err := json.Unmarshal([]byte(cleaned), &captions); err != nil {
		fmt.Println("[Captions] unparsable caption response, using fallback:", err)
		return fallbackCaptions()
	}

	result := make([]string, 0, len(captions))
	for _, caption := range captions {
		if c := strings.TrimSpace(caption); c != "" {
			result = append(result, c)
		}
	}
	if len(result) == 0 {
		fmt.Println("[Captions] caption response had no captions, using fallback")
		return fallbackCaptions()
	}
	return result
}

func fallbackCaptions() []string {
	return append([]string(nil), FallbackCaptions...)
}

package analysis

import (
	"encoding/base64"

	"github.com/angelmondragon/calorielens-backend/pkg/gemini"
)

const (
	DefaultTemperature     = 0.4
	DefaultMaxOutputTokens = 1024
)

const nutritionPrompt = `Analyze this food image and provide detailed nutrition info in JSON format:
{
  "foods": [
    {
      "name": "food name",
      "portion": "estimated portion with units",
      "calories": number,
      "protein_g": number,
      "carbs_g": number,
      "fat_g": number
    }
  ],
  "totals": {
    "calories": number,
    "protein_g": number,
    "carbs_g": number,
    "fat_g": number
  },
  "confidence": "high|medium|low",
  "notes": "any relevant observations"
}

Be specific about portions. If multiple items, list each separately. Be conservative with calorie estimates.`

func buildRequest(image []byte, mimeType string, temperature float64, maxTokens int) gemini.GenerateContentRequest {
	return gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Parts: []gemini.Part{
				{Text: nutritionPrompt},
				{InlineData: &gemini.InlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
}

package gemini

import (
	"context"
	"fmt"

	"github.com/bodul/dailyword/internal/puzzles"
	"google.golang.org/genai"
)

const extractPrompt = `Analyse cette photo de grille de mots croisés résolue, avec ses définitions.

Extrais le puzzle au format JSON suivant :
{
  "title": "<titre de la grille, ou \"Sans titre\">",
  "across": {
    "<numéro>": {"row": <ligne>, "col": <colonne>, "answer": "<RÉPONSE>", "clue": "<définition>"},
    ...
  },
  "down": {
    "<numéro>": {"row": <ligne>, "col": <colonne>, "answer": "<RÉPONSE>", "clue": "<définition>"},
    ...
  }
}

Règles :
- "row" et "col" commencent à 0 en haut à gauche et désignent la première case du mot.
- "across" contient les mots horizontaux, "down" les mots verticaux.
- "answer" est en majuscules, sans espace ni accent.
- Deux mots qui se croisent doivent avoir la même lettre dans la case commune.
- Réponds UNIQUEMENT avec le JSON, sans commentaire ni markdown.`

// ExtractPuzzle sends a photo to Gemini Flash and returns the validated
// puzzle it describes.
func (c *Client) ExtractPuzzle(ctx context.Context, imageData []byte, mimeType string) (*puzzles.Puzzle, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	p, err := puzzles.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse puzzle JSON: %w\nraw response: %s", err, text)
	}
	return p, nil
}

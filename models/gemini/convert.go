package gemini

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
)

// buildGenerateCall translates an orchestrator request into the SDK call
// shape: resolved model name, ordered contents (history first, then the new
// input as a user turn) and the generation config.
func buildGenerateCall(req models.GenerateRequest) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	model := req.Model
	if model == "" {
		model = chat.DefaultModel
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		parts, err := partsToGenai(msg.Parts)
		if err != nil {
			return "", nil, nil, fmt.Errorf("invalid history part: %w", err)
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  string(msg.Role),
			Parts: parts,
		})
	}

	inputParts, err := partsToGenai(req.Input)
	if err != nil {
		return "", nil, nil, fmt.Errorf("invalid input part: %w", err)
	}
	if len(inputParts) > 0 {
		contents = append(contents, &genai.Content{
			Role:  string(models.RoleUser),
			Parts: inputParts,
		})
	}

	if len(contents) == 0 {
		return "", nil, nil, fmt.Errorf("cannot build gemini request with no content")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if !req.ThinkingEnabled {
		// A zero budget turns reasoning off entirely.
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(0))}
	}

	return model, contents, cfg, nil
}

func partsToGenai(parts []models.Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Text != "":
			out = append(out, &genai.Part{Text: p.Text})

		case p.InlineData != nil:
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding inline data (%s): %w", p.InlineData.MimeType, err)
			}
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: p.InlineData.MimeType,
				Data:     data,
			}})

		case p.FileData != nil:
			if p.FileData.GoogleURI == nil || *p.FileData.GoogleURI == "" {
				return nil, fmt.Errorf("file part %q has no uploaded URI", p.FileData.FileURL)
			}
			out = append(out, &genai.Part{FileData: &genai.FileData{
				FileURI:  *p.FileData.GoogleURI,
				MIMEType: p.FileData.MimeType,
			}})
		}
	}
	return out, nil
}

// responseToModel flattens the SDK response candidates into plain parts.
func responseToModel(resp *genai.GenerateContentResponse) models.GenerateResponse {
	out := models.GenerateResponse{}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				out.Parts = append(out.Parts, models.Part{Text: part.Text})
			}
			if part.InlineData != nil {
				out.Parts = append(out.Parts, models.Part{InlineData: &models.InlineData{
					MimeType: part.InlineData.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				}})
			}
		}
	}
	return out
}

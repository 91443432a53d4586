package gemini

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

var _ chat.Upstream = (*Client)(nil)

// Client implements chat.Upstream on top of the google-genai SDK.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini client. GEMINI_API_KEY must be set in the
// environment or in a .env file.
func NewClient(ctx context.Context) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Generate runs one blocking generateContent call.
func (c *Client) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	model, contents, cfg, err := buildGenerateCall(req)
	if err != nil {
		return models.GenerateResponse{}, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return models.GenerateResponse{}, fmt.Errorf("gemini generate failed: %w", err)
	}
	return responseToModel(resp), nil
}

// GenerateStream runs streamGenerateContent and forwards each chunk on the
// response channel. Both channels are closed when the stream ends; a
// terminal error arrives on the buffered error channel.
func (c *Client) GenerateStream(ctx context.Context, req models.GenerateRequest) (<-chan models.GenerateResponse, <-chan error) {
	respChan := make(chan models.GenerateResponse)
	errChan := make(chan error, 1)

	model, contents, cfg, err := buildGenerateCall(req)
	if err != nil {
		errChan <- err
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	go func() {
		defer close(respChan)
		defer close(errChan)

		for chunk, err := range c.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				errChan <- fmt.Errorf("gemini stream failed: %w", err)
				return
			}
			out := responseToModel(chunk)
			if len(out.Parts) == 0 {
				continue
			}
			respChan <- out
		}
	}()

	return respChan, errChan
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// perplexitySystemPrompt asks the grounded-answer model for JSON, but the
// response is still parsed defensively downstream.
const perplexitySystemPrompt = `You are a helpful assistant that finds restaurant dine-in offers.
Return your response in the following JSON format:
{
    "offers": [
        {
            "platform": "swiggy_dineout|eazydiner|district",
            "offer_type": "pre_booked|walk_in|bank_offer|coupon|general",
            "discount_text": "Full description of the offer",
            "discount_percentage": 40.0,
            "max_discount": 500,
            "min_order": 1000,
            "bank_name": "HDFC" or null,
            "conditions": "Valid on weekdays" or null,
            "coupon_code": "CODE123" or null
        }
    ],
    "summary": "Brief summary of best deals available"
}
Only include currently valid offers. Be specific and factual.`

// perplexityProvider is the single-call grounded-answer backend: one request
// does web search and extraction together.
type perplexityProvider struct {
	apiKey string
	model  string
	client *http.Client
}

func newPerplexity(apiKey, model string, client *http.Client) *perplexityProvider {
	if model == "" {
		model = "sonar"
	}
	return &perplexityProvider{apiKey: apiKey, model: model, client: client}
}

func (p *perplexityProvider) Name() string { return "perplexity" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *perplexityProvider) Search(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, perplexityBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &Error{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &Error{Provider: p.Name(), Status: resp.StatusCode, Message: string(msg)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{Provider: p.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

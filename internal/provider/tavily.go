package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	tavilyBaseURL = "https://api.tavily.com"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// tavilyProvider is the two-stage backend: Tavily performs the web search,
// Gemini extracts structured offers from the search results.
type tavilyProvider struct {
	tavilyKey string
	geminiKey string
	model     string
	client    *http.Client
}

func newTavily(tavilyKey, geminiKey, model string, client *http.Client) *tavilyProvider {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &tavilyProvider{tavilyKey: tavilyKey, geminiKey: geminiKey, model: model, client: client}
}

func (t *tavilyProvider) Name() string { return "tavily" }

type tavilySearchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilySearchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// offerDomains scopes the Tavily search to the dining platforms.
var offerDomains = []string{
	"swiggy.com",
	"eazydiner.com",
	"dineout.co.in",
	"district.in",
	"magicpin.in",
}

func (t *tavilyProvider) Search(ctx context.Context, prompt string) (string, error) {
	search, err := t.search(ctx, prompt)
	if err != nil {
		return "", err
	}
	if search.Answer == "" && len(search.Results) == 0 {
		return "", nil
	}
	return t.extract(ctx, prompt, search)
}

func (t *tavilyProvider) search(ctx context.Context, query string) (*tavilySearchResponse, error) {
	body, err := json.Marshal(tavilySearchRequest{
		APIKey:         t.tavilyKey,
		Query:          query,
		SearchDepth:    "advanced",
		IncludeAnswer:  true,
		MaxResults:     10,
		IncludeDomains: offerDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyBaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: t.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Provider: t.Name(), Status: resp.StatusCode, Message: string(msg)}
	}

	var parsed tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &Error{Provider: t.Name(), Message: fmt.Sprintf("decode search response: %v", err)}
	}
	return &parsed, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// extract runs the summarization/extraction stage over the search results.
func (t *tavilyProvider) extract(ctx context.Context, prompt string, search *tavilySearchResponse) (string, error) {
	var sb strings.Builder
	if search.Answer != "" {
		sb.WriteString("Summary: " + search.Answer + "\n\n")
	}
	for _, r := range search.Results {
		sb.WriteString("Source: " + r.URL + "\nContent: " + r.Content + "\n\n")
	}

	extractPrompt := fmt.Sprintf(`Based on the following search results, answer this request: %s

Search Results:
%s

Return JSON in this exact format:
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

Only include currently valid offers. Return an empty offers array if none were found.`, prompt, sb.String())

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: extractPrompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal extract request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, t.model, t.geminiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &Error{Provider: t.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &Error{Provider: t.Name(), Status: resp.StatusCode, Message: string(msg)}
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{Provider: t.Name(), Message: fmt.Sprintf("decode extract response: %v", err)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

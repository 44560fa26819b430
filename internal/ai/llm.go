package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/pkg/rules"
)

const (
	groqEndpoint     = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel     = "llama-3.3-70b-versatile"
	llmClientTimeout = 15 * time.Second
)

// LLM asks a remote chat-completion model for a move. The model is treated
// as an opaque collaborator: its answer is parsed strictly and re-validated
// against the rules, and any failure surfaces as an error so the scheduler
// can fall back to Random.
type LLM struct {
	apiKey   string
	model    string
	endpoint string
	httpC    *http.Client
}

// NewLLM creates an LLM player. An empty model uses the default.
func NewLLM(apiKey, model string) *LLM {
	if model == "" {
		model = defaultModel
	}
	return &LLM{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqEndpoint,
		httpC:    &http.Client{Timeout: llmClientTimeout},
	}
}

// Configure swaps the model.
func (l *LLM) Configure(cfg Config) error {
	if cfg.Model != "" {
		l.model = cfg.Model
	}
	return nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// llmMove is the JSON shape the model must answer with.
type llmMove struct {
	PieceID     string `json:"pieceId"`
	Destination struct {
		Q int `json:"q"`
		R int `json:"r"`
	} `json:"destination"`
}

func (l *LLM) GenerateMove(ctx context.Context, state *rules.GameState, playerID string) (rules.MoveCommand, error) {
	legal := rules.LegalMoves(state, playerID)
	if len(legal) == 0 {
		return rules.MoveCommand{}, ErrNoLegalMoves
	}

	content, err := l.complete(ctx, movePrompt(state, playerID, legal))
	if err != nil {
		return rules.MoveCommand{}, err
	}

	var parsed llmMove
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return rules.MoveCommand{}, fmt.Errorf("llm: unparsable move %q: %w", content, err)
	}
	cmd := rules.MoveCommand{PieceID: parsed.PieceID}
	cmd.Destination.Q = parsed.Destination.Q
	cmd.Destination.R = parsed.Destination.R

	if v := rules.ValidateMove(state, playerID, cmd); !v.Valid {
		return rules.MoveCommand{}, fmt.Errorf("llm: proposed illegal move (%s)", v.Reason)
	}
	return cmd, nil
}

func (l *LLM) ChooseStarvation(ctx context.Context, state *rules.GameState, playerID string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoLegalMoves
	}
	content, err := l.complete(ctx, starvationPrompt(state, playerID, candidates))
	if err != nil {
		return "", err
	}
	var parsed struct {
		PieceID string `json:"pieceId"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return "", fmt.Errorf("llm: unparsable choice %q: %w", content, err)
	}
	for _, id := range candidates {
		if id == parsed.PieceID {
			return id, nil
		}
	}
	return "", fmt.Errorf("llm: %q is not a candidate", parsed.PieceID)
}

// complete runs one chat completion and returns the raw message content.
func (l *LLM) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.4,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpC.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("model", l.model).Msg("LLM request failed")
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("llm: empty completion")
	}
	return cr.Choices[0].Message.Content, nil
}

const systemPrompt = `You play a hex-board strategy game. Jarls win by reaching the throne at (0,0). Answer with a single JSON object and nothing else.`

func movePrompt(state *rules.GameState, playerID string, legal []rules.MoveCommand) string {
	stateJSON, _ := json.Marshal(state)
	legalJSON, _ := json.Marshal(legal)
	var b strings.Builder
	b.WriteString("You are player " + playerID + ".\nGame state:\n")
	b.Write(stateJSON)
	b.WriteString("\nLegal moves:\n")
	b.Write(legalJSON)
	b.WriteString("\nPick one legal move. Answer as {\"pieceId\":\"...\",\"destination\":{\"q\":0,\"r\":0}}.")
	return b.String()
}

func starvationPrompt(state *rules.GameState, playerID string, candidates []string) string {
	stateJSON, _ := json.Marshal(state)
	var b strings.Builder
	b.WriteString("You are player " + playerID + ". One of your warriors must starve.\nGame state:\n")
	b.Write(stateJSON)
	b.WriteString("\nCandidates: " + strings.Join(candidates, ", "))
	b.WriteString("\nAnswer as {\"pieceId\":\"...\"}.")
	return b.String()
}

// extractJSON trims any prose around the first JSON object in a reply.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
)

const maxResponseBytes = 2 << 20

// Doer is the subset of *http.Client the gateway needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeminiConfig configures a GeminiClient. Zero durations fall back to defaults.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	Backoff     Backoff

	HTTPClient Doer
	// Sleep waits between attempts; tests replace it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// GeminiClient asks a Gemini model for a search-grounded answer, retrying
// transient failures with exponential backoff.
type GeminiClient struct {
	cfg      GeminiConfig
	endpoint string
	log      zerolog.Logger
}

// NewGeminiClient creates a GeminiClient.
func NewGeminiClient(cfg GeminiConfig, log zerolog.Logger) *GeminiClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff.Base = time.Second
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent"

	return &GeminiClient{
		cfg:      cfg,
		endpoint: endpoint,
		log:      logger.Component(log, "ai_gateway").With().Str("model", cfg.Model).Logger(),
	}
}

// ─── Wire format ────────────────────────────────────────────────────────

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []groundingChunk `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// Source is one citation returned with a grounded answer.
type Source struct {
	Title string
	URL   string
}

// ─── Ask ────────────────────────────────────────────────────────────────

// Ask implements Asker.
func (c *GeminiClient) Ask(ctx context.Context, prompt, persona string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: persona}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		Tools:             []geminiTool{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		return "", &Failure{Reason: ReasonBadResponse, Err: err}
	}

	var last *Failure
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		payload, status, err := c.post(ctx, body)

		if err == nil && status == http.StatusOK {
			return decodeAnswer(payload, attempt+1)
		}

		if ctx.Err() != nil {
			return "", &Failure{Reason: reasonFor(ctx.Err()), Status: status, Attempts: attempt + 1, Err: ctx.Err()}
		}

		last = &Failure{Status: status, Attempts: attempt + 1, Err: err}
		switch {
		case err != nil:
			last.Reason = reasonFor(err)
		case retryableStatus(status):
			last.Reason = ReasonHTTPStatus
			last.Err = fmt.Errorf("upstream: %s", snippet(payload))
		default:
			last.Reason = ReasonHTTPStatus
			last.Err = fmt.Errorf("upstream: %s", snippet(payload))
			return "", last
		}

		if attempt == c.cfg.MaxAttempts-1 {
			break
		}

		delay := c.cfg.Backoff.Delay(attempt)
		c.log.Warn().
			Err(last).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("AI request failed, retrying")

		if err := c.cfg.Sleep(ctx, delay); err != nil {
			return "", &Failure{Reason: reasonFor(err), Status: status, Attempts: attempt + 1, Err: err}
		}
	}

	return "", &Failure{Reason: ReasonRetriesExhausted, Status: last.Status, Attempts: last.Attempts, Err: last}
}

// post issues one bounded attempt. A non-nil error means no HTTP response was received.
func (c *GeminiClient) post(ctx context.Context, body []byte) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return payload, resp.StatusCode, nil
}

func decodeAnswer(payload []byte, attempts int) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", &Failure{Reason: ReasonBadResponse, Status: http.StatusOK, Attempts: attempts, Err: err}
	}
	if len(resp.Candidates) == 0 {
		return "", &Failure{Reason: ReasonEmptyResponse, Status: http.StatusOK, Attempts: attempts}
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &Failure{Reason: ReasonEmptyResponse, Status: http.StatusOK, Attempts: attempts}
	}

	var sources []Source
	if cand.GroundingMetadata != nil {
		for _, ch := range cand.GroundingMetadata.GroundingChunks {
			if ch.Web != nil && ch.Web.URI != "" {
				sources = append(sources, Source{Title: ch.Web.Title, URL: ch.Web.URI})
			}
		}
	}
	return AppendSources(text, sources), nil
}

// AppendSources adds a numbered "Sources" section, skipping repeated URLs.
// With no sources the text is returned unchanged.
func AppendSources(text string, sources []Source) string {
	if len(sources) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\nSources:")

	seen := make(map[string]bool, len(sources))
	n := 0
	for _, s := range sources {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		n++
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&sb, "\n%d. %s - %s", n, title, s.URL)
	}
	return sb.String()
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonTransport
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// Package refine rewrites dictated text into a thought document with an
// LLM. The model's reply is untrusted: it must parse as a document built
// only from the known block and mark set, or it is rejected whole.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/tidwall/gjson"
)

// ErrMalformedRefinement is returned when the model's reply is not a valid
// document.
var ErrMalformedRefinement = errors.New("refinement is not a valid document")

const serviceName = "refine"

// Generator is the part of an LLM provider the refiner uses.
type Generator interface {
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

type Refiner struct {
	gen     Generator
	model   string
	prompts *Prompts
	logger  *slog.Logger
}

func NewRefiner(gen Generator, model string, prompts *Prompts, logger *slog.Logger) *Refiner {
	return &Refiner{gen: gen, model: model, prompts: prompts, logger: logger}
}

// Refine turns raw dictated text into a document.
func (r *Refiner) Refine(ctx context.Context, text string) (doctree.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > config.MaxDictationTextLength {
		return nil, fmt.Errorf("%w: text is %d characters, limit is %d", domain.ErrValidation, n, config.MaxDictationTextLength)
	}

	prompt := r.prompts.Render(text)
	req := &llmprovider.GenerateRequest{
		Messages: []llmprovider.Message{{
			Role: "user",
			Blocks: []*llmprovider.Block{{
				BlockType:   "text",
				Sequence:    0,
				TextContent: &prompt,
			}},
		}},
		Model: r.model,
	}

	resp, err := r.gen.GenerateResponse(ctx, req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, Err: err}
	}

	doc, err := parseReply(replyText(resp))
	if err != nil {
		r.logger.Warn("refinement rejected", "model", r.model, "error", err)
		return nil, &domain.UpstreamError{Service: serviceName, Err: err}
	}
	r.logger.Debug("refinement accepted", "model", r.model, "blocks", len(doc))
	return doc, nil
}

func replyText(resp *llmprovider.GenerateResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != "text" || block.TextContent == nil {
			continue
		}
		b.WriteString(*block.TextContent)
	}
	return b.String()
}

// parseReply finds the document in a reply. Models sometimes wrap it in a
// code fence, in prose or in an object with a "content" field.
func parseReply(reply string) (doctree.Document, error) {
	raw, ok := locateDocument(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON document in reply", ErrMalformedRefinement)
	}
	doc, err := doctree.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRefinement, err)
	}
	return doc, nil
}

func locateDocument(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !gjson.Valid(s) {
		start, end := strings.Index(s, "["), strings.LastIndex(s, "]")
		if start < 0 || end <= start || !gjson.Valid(s[start:end+1]) {
			return "", false
		}
		s = s[start : end+1]
	}

	switch v := gjson.Parse(s); {
	case v.IsArray():
		return v.Raw, true
	case v.IsObject():
		if c := v.Get("content"); c.IsArray() {
			return c.Raw, true
		}
	}
	return "", false
}

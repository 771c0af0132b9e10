// Package discovery turns natural-language search queries into candidate
// prospect URLs by delegating to a generative text oracle.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// maxURLsPerQuery caps the candidates accepted from one oracle response.
const maxURLsPerQuery = 15

const systemPrompt = `あなたは日本の物流業界の営業リサーチアシスタントです。` +
	`指定された条件に合う実在する運送会社・物流会社の公式ウェブサイトURLを挙げてください。` +
	`地域が偏らないように選んでください。` +
	`回答はURL文字列のJSON配列のみで返してください。例: ["https://example-unso.co.jp", "https://example-butsuryu.jp"]`

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\\\]\[,]+`)

// TextGenerator is the narrow contract for the generative oracle.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Discovery implements lead.Discoverer on top of a TextGenerator.
type Discovery struct {
	gen    TextGenerator
	logger *zap.Logger
}

// New builds a Discovery.
func New(gen TextGenerator, logger *zap.Logger) *Discovery {
	return &Discovery{gen: gen, logger: logger}
}

// Discover asks the oracle for prospect sites matching query and returns up
// to 15 absolute URLs. A malformed response degrades to fewer (or zero)
// candidates rather than an error; only the oracle call itself can fail.
func (d *Discovery) Discover(ctx context.Context, query string) ([]string, error) {
	raw, err := d.gen.Generate(ctx, systemPrompt, query)
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", query, err)
	}
	urls := parseCandidateURLs(raw)
	d.logger.Debug("discovery query parsed",
		zap.String("query", query),
		zap.Int("candidates", len(urls)),
	)
	return urls, nil
}

// parseCandidateURLs extracts URLs from the oracle's free text. The output
// format is not contractually guaranteed, so parsing is two-stage: first the
// JSON array the prompt asks for, then a raw URL scan as fallback.
func parseCandidateURLs(raw string) []string {
	if urls := parseJSONArray(raw); urls != nil {
		return urls
	}
	return keepHTTP(urlPattern.FindAllString(raw, -1))
}

// parseJSONArray locates a JSON array substring and decodes it. Returns nil
// (not an empty slice) when no well-formed array of strings is present, so
// the caller can distinguish "fall back" from "parsed empty".
func parseJSONArray(raw string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}
	var candidates []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &candidates); err != nil {
		return nil
	}
	return keepHTTP(candidates)
}

func keepHTTP(candidates []string) []string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "http") {
			continue
		}
		urls = append(urls, c)
		if len(urls) == maxURLsPerQuery {
			break
		}
	}
	return urls
}

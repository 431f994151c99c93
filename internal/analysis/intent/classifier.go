// Package intent tags free text as an image request or a conversational turn.
package intent

import (
	"strings"

	"github.com/samber/lo"
)

// Intent is the outcome of classification.
type Intent string

const (
	ImageRequest   Intent = "image_request"
	Conversational Intent = "conversational"
)

// imageKeywords are checked in order; the first one found wins.
var imageKeywords = []string{
	"image",
	"picture",
	"visualize",
	"show me",
	"generate",
	"create a picture",
	"draw",
}

// Result reports the intent and, for image requests, the keyword that matched.
type Result struct {
	Intent  Intent `json:"intent"`
	Keyword string `json:"keyword,omitempty"`
}

// Keywords returns the image keywords in match order.
func Keywords() []string {
	return append([]string(nil), imageKeywords...)
}

// Classify matches text case-insensitively against the image keywords.
// This is a heuristic: "can you show me you care" is an image request.
func Classify(text string) Result {
	normalized := strings.ToLower(text)
	keyword, ok := lo.Find(imageKeywords, func(k string) bool {
		return strings.Contains(normalized, k)
	})
	if !ok {
		return Result{Intent: Conversational}
	}
	return Result{Intent: ImageRequest, Keyword: keyword}
}

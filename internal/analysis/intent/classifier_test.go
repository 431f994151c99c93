package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text    string
		intent  Intent
		keyword string
	}{
		{"please draw a sunset", ImageRequest, "draw"},
		{"I feel anxious today", Conversational, ""},
		{"How can I relax tonight?", Conversational, ""},
		{"show me a picture of a calm lake", ImageRequest, "picture"},
		{"SHOW ME the ocean", ImageRequest, "show me"},
		{"Can you Visualize a forest", ImageRequest, "visualize"},
		{"generate something soothing", ImageRequest, "generate"},
		{"can you show me you care", ImageRequest, "show me"},
		{"", Conversational, ""},
		{"an image of my garden", ImageRequest, "image"},
		{"imagination helps me", Conversational, ""},
	}

	for _, tc := range cases {
		got := Classify(tc.text)
		assert.Equal(t, tc.intent, got.Intent, tc.text)
		assert.Equal(t, tc.keyword, got.Keyword, tc.text)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	first := Classify("create a picture of mountains")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify("create a picture of mountains"))
	}
	assert.Equal(t, "picture", first.Keyword)
}

func TestKeywordsReturnsCopy(t *testing.T) {
	kw := Keywords()
	kw[0] = "changed"
	assert.Equal(t, "image", Keywords()[0])
}

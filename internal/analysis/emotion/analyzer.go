package emotion

import (
	"strings"
)

// Label is the mood inferred from a user utterance.
type Label string

const (
	Neutral  Label = "neutral"
	Calm     Label = "calm"
	Hopeful  Label = "hopeful"
	Anxious  Label = "anxious"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Stressed Label = "stressed"
	Tired    Label = "tired"
)

// Decision is the mood estimate for a piece of text.
type Decision struct {
	Emotion Label `json:"emotion"`
	Score   int   `json:"score"`
}

var keywordBuckets = map[Label][]string{
	Calm: {
		"calm", "relaxed", "peaceful", "at ease", "content", "grounded", "serene",
	},
	Hopeful: {
		"hopeful", "better today", "looking forward", "excited", "grateful", "happy", "proud", "motivated",
	},
	Anxious: {
		"anxious", "anxiety", "worried", "worry", "nervous", "panic", "scared", "afraid", "on edge", "uneasy",
	},
	Sad: {
		"sad", "down", "depressed", "lonely", "alone", "cry", "crying", "hopeless", "empty", "heartbroken", "miss",
	},
	Angry: {
		"angry", "furious", "mad", "annoyed", "frustrated", "irritated", "pissed", "rage",
	},
	Stressed: {
		"stressed", "stress", "overwhelmed", "pressure", "deadline", "too much", "burnout", "burned out",
	},
	Tired: {
		"tired", "exhausted", "can't sleep", "cannot sleep", "insomnia", "sleepy", "drained", "fatigue",
	},
}

// priority breaks score ties; distress labels come first.
var priority = []Label{Anxious, Sad, Stressed, Angry, Tired, Hopeful, Calm}

var guidance = map[Label]string{
	Anxious:  "The user sounds anxious. Slow the pace, reassure them and offer a simple grounding or breathing exercise.",
	Sad:      "The user sounds low. Respond gently, acknowledge the feeling and avoid rushing to fix it.",
	Angry:    "The user sounds frustrated. Stay steady and non-judgmental, and help them name what is going on.",
	Stressed: "The user sounds overwhelmed. Help break things into one small manageable step.",
	Tired:    "The user sounds tired. Keep the reply short and suggest restful, low-effort options.",
	Hopeful:  "The user sounds positive. Reflect their progress and encourage it.",
	Calm:     "The user sounds settled. Keep a clear, warm tone.",
}

// Analyze scores text against the mood keyword buckets.
func Analyze(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	// repeated exclamation marks amplify whatever dominates
	if n := strings.Count(text, "!"); n > 1 {
		for label := range scores {
			scores[label] += n - 1
		}
	}

	best := Decision{Emotion: Neutral}
	for _, label := range priority {
		if s := scores[label]; s > best.Score {
			best = Decision{Emotion: label, Score: s}
		}
	}
	return best
}

// Guidance returns a short tone hint for the reply, empty for neutral.
func (d Decision) Guidance() string {
	if d.Score <= 0 {
		return ""
	}
	return guidance[d.Emotion]
}

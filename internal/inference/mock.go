package inference

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const mockDims = 64

// Mock returns deterministic replies. Selected with USE_MOCK_LLM=true.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) GenerateJSON(_ context.Context, req JSONRequest) (string, error) {
	return `{
  "scores": {
    "overall": 72,
    "communication": 7, "needsAnalysis": 6, "proposalQuality": 7, "flexibility": 7,
    "trustBuilding": 8, "objectionHandling": 6, "closingSkill": 6, "listeningSkill": 8,
    "productKnowledge": 7, "customerFocus": 8, "goalAchievement": 7
  },
  "strengths": ["Opened with a clear agenda", "Asked about the customer's current tooling"],
  "improvements": ["Quantify the value proposition", "Confirm next steps before closing"],
  "keyInsights": ["Customer trust rose after the pricing discussion"],
  "goalFeedback": {"achievedGoals": [], "partiallyAchievedGoals": [], "missedGoals": []},
  "overallComment": "Solid discovery with room to tighten the close.",
  "nextSteps": "Practice summarising value in one sentence."
}`, nil
}

func (m *Mock) GenerateText(_ context.Context, _, user string) (string, error) {
	if strings.Contains(strings.ToLower(user), "no related") {
		return `{"related": false, "comment": "No supporting document."}`, nil
	}
	return `{"related": true, "comment": "Statement is consistent with the reference material."}`, nil
}

func (m *Mock) AnalyzeVideo(context.Context, string, string, string) (string, error) {
	return `{"overallScore": 7, "eyeContact": 7, "facialExpression": 6, "gesture": 7, "emotion": 7,
"strengths": ["Steady eye contact"], "improvements": ["Smile when greeting"],
"analysis": "Composed delivery with limited expressiveness."}`, nil
}

// Embed hashes words into a fixed-size bag-of-words vector.
func (m *Mock) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = hashVector(in)
	}
	return out, nil
}

func hashVector(s string) []float32 {
	vec := make([]float32, mockDims)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%mockDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

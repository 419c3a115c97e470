package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"HIGH", PriorityHigh},
		{"high", PriorityHigh},
		{"High", PriorityHigh},
		{" low ", PriorityLow},
		{"Medium", PriorityMedium},
		{"", PriorityMedium},
		{"urgent", PriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePriority(tt.in), "input %q", tt.in)
	}
}

func TestPriorityMarshal(t *testing.T) {
	data, err := json.Marshal(RecommendationItem{Priority: PriorityHigh, Action: "a"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"priority":"High"`)
}

func TestAnalysisRequestValidate(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")

	tests := []struct {
		name    string
		req     *AnalysisRequest
		wantErr bool
	}{
		{"valid", NewAnalysisRequest(png, "image/png", "improve my build", "Warframe"), false},
		{"empty image", NewAnalysisRequest(nil, "image/png", "improve my build", ""), true},
		{"blank prompt", NewAnalysisRequest(png, "image/png", "   ", ""), true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAnalysisRequestCopiesImage(t *testing.T) {
	img := []byte("\x89PNG\r\n\x1a\n0000")
	req := NewAnalysisRequest(img, "", "p", "")
	img[0] = 0

	assert.Equal(t, byte(0x89), req.Image()[0])
	assert.Equal(t, "image/png", req.MimeType())

	out := req.Image()
	out[1] = 0
	assert.Equal(t, byte('P'), req.Image()[1])
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-1))
	assert.Equal(t, 1.0, ClampConfidence(3))
	assert.Equal(t, 0.4, ClampConfidence(0.4))
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmotionFamily_MapsKnownLabels(t *testing.T) {
	cases := map[string]string{
		"happiness":      "positive",
		"excitement":     "positive",
		"gratitude":      "positive",
		"sadness":        "sad",
		"disappointment": "sad",
		"anger":          "angry",
		"disgust":        "angry",
		"fear":           "fearful",
		"anxiety":        "fearful",
		"confusion":      "confused",
		"surprise":       "surprised",
		"boredom":        "neutral",
		"":               "neutral",
	}
	for emotion, want := range cases {
		assert.Equal(t, want, emotionFamily(emotion), "emotion=%s", emotion)
	}
}

func TestAdjust_PositiveRaisesTemperatureWithIntensity(t *testing.T) {
	low := Adjust(Sentiment{PrimaryEmotion: "happiness", Intensity: 1})
	high := Adjust(Sentiment{PrimaryEmotion: "happiness", Intensity: 5})
	assert.Greater(t, high.Temperature, low.Temperature)
	assert.LessOrEqual(t, high.Temperature, 0.9)
}

func TestAdjust_AngryLowersTemperatureAndClamps(t *testing.T) {
	got := Adjust(Sentiment{PrimaryEmotion: "anger", Intensity: 5})
	assert.GreaterOrEqual(t, got.Temperature, 0.4)
	assert.Contains(t, got.ToneGuidance, "anger")
}

func TestAdjust_NeutralDefault(t *testing.T) {
	got := Adjust(Sentiment{PrimaryEmotion: "neutral", Intensity: 3})
	assert.Equal(t, 0.7, got.Temperature)
}

func TestAdjust_AllFamiliesStayWithinClampBounds(t *testing.T) {
	emotions := []string{"happiness", "sadness", "anger", "fear", "confusion", "surprise", "neutral"}
	for _, e := range emotions {
		for intensity := 1; intensity <= 5; intensity++ {
			adj := Adjust(Sentiment{PrimaryEmotion: e, Intensity: intensity})
			assert.GreaterOrEqual(t, adj.Temperature, 0.4, "emotion=%s intensity=%d", e, intensity)
			assert.LessOrEqual(t, adj.Temperature, 0.9, "emotion=%s intensity=%d", e, intensity)
		}
	}
}

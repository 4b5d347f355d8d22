package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSimilarity(t *testing.T) {
	t.Run("identical titles score 1.0", func(t *testing.T) {
		title := "Senate Confirms New Supreme Court Justice"
		ents := EntityTexts(ExtractEntities(title, 5))
		score := TitleSimilarity(title, title, ents, ents)
		assert.Equal(t, 1.0, score)
	})

	t.Run("unrelated titles score low", func(t *testing.T) {
		a := "Senate Confirms New Supreme Court Justice"
		b := "Local Bakery Wins Regional Award"
		score := TitleSimilarity(a, b,
			EntityTexts(ExtractEntities(a, 5)),
			EntityTexts(ExtractEntities(b, 5)),
		)
		assert.Less(t, score, 0.30)
	})

	t.Run("paraphrased headlines about the same story score above threshold", func(t *testing.T) {
		a := "Magnitude 7.2 Earthquake Hits Western Turkey, Dozens Feared Dead"
		b := "Dozens Feared Dead After Magnitude 7.2 Earthquake Strikes Western Turkey"
		score := TitleSimilarity(a, b,
			EntityTexts(ExtractEntities(a, 5)),
			EntityTexts(ExtractEntities(b, 5)),
		)
		assert.Greater(t, score, 0.30)
	})

	t.Run("three or more shared entities apply the boost", func(t *testing.T) {
		a := "Biden And Zelensky Meet Macron In Washington Summit"
		b := "Washington Summit Brings Together Biden Zelensky And Macron"
		unboosted := TitleSimilarity(a, b, nil, nil)
		boosted := TitleSimilarity(a, b,
			EntityTexts(ExtractEntities(a, 5)),
			EntityTexts(ExtractEntities(b, 5)),
		)
		assert.Greater(t, boosted, unboosted)
	})

	t.Run("score never exceeds 1.0 even when boosted", func(t *testing.T) {
		a := "Biden Zelensky Macron Summit"
		score := TitleSimilarity(a, a,
			EntityTexts(ExtractEntities(a, 5)),
			EntityTexts(ExtractEntities(a, 5)),
		)
		assert.LessOrEqual(t, score, 1.0)
	})

	t.Run("empty titles score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, TitleSimilarity("", "", nil, nil))
	})
}

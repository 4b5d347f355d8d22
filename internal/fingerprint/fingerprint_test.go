package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsroom-core/internal/domain/entity"
)

func TestCompute(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		title := "Earthquake Strikes Western Turkey Killing Dozens"
		ents := ExtractEntities(title, 1)
		assert.Equal(t, Compute(title, ents), Compute(title, ents))
	})

	t.Run("is 6 hex characters", func(t *testing.T) {
		title := "Wildfire Spreads Across Southern California"
		fp := Compute(title, ExtractEntities(title, 1))
		assert.Len(t, fp, 6)
	})

	t.Run("word-order-independent headlines collide", func(t *testing.T) {
		a := "Earthquake Strikes Western Turkey Killing Dozens"
		b := "Dozens Killed As Earthquake Strikes Western Turkey"
		fpA := Compute(a, ExtractEntities(a, 1))
		fpB := Compute(b, ExtractEntities(b, 1))
		assert.Equal(t, fpA, fpB)
	})

	t.Run("unrelated stories diverge", func(t *testing.T) {
		a := "Earthquake Strikes Western Turkey Killing Dozens"
		b := "Central Bank Raises Interest Rates Again"
		fpA := Compute(a, ExtractEntities(a, 1))
		fpB := Compute(b, ExtractEntities(b, 1))
		assert.NotEqual(t, fpA, fpB)
	})

	t.Run("handles titles with fewer than three significant words", func(t *testing.T) {
		title := "Fire Erupts"
		assert.NotPanics(t, func() {
			Compute(title, ExtractEntities(title, 1))
		})
	})

	t.Run("handles no extracted entities", func(t *testing.T) {
		title := "markets fall sharply today"
		assert.NotPanics(t, func() {
			Compute(title, []entity.EntityMention{})
		})
	})
}

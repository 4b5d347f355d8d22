package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicConflict(t *testing.T) {
	t.Run("flags different national leaders", func(t *testing.T) {
		assert.True(t, TopicConflict(
			"Biden Addresses Nation On Economy",
			"Putin Addresses Nation On Economy",
		))
	})

	t.Run("does not flag the same leader mentioned twice", func(t *testing.T) {
		assert.False(t, TopicConflict(
			"Biden Addresses Nation On Economy",
			"Biden Faces Criticism Over Economy Remarks",
		))
	})

	t.Run("flags different disaster locations when a disaster word is present", func(t *testing.T) {
		assert.True(t, TopicConflict(
			"Earthquake Strikes Western Turkey Killing Dozens",
			"Earthquake Strikes Northern Japan Killing Dozens",
		))
	})

	t.Run("does not flag disaster locations without a disaster trigger word", func(t *testing.T) {
		assert.False(t, TopicConflict(
			"Turkey Hosts Regional Trade Summit",
			"Japan Hosts Regional Trade Summit",
		))
	})

	t.Run("flags different sports teams in a competition context", func(t *testing.T) {
		assert.True(t, TopicConflict(
			"Lakers Advance To Championship Final",
			"Celtics Advance To Championship Final",
		))
	})

	t.Run("unrelated titles with no recognised subjects do not conflict", func(t *testing.T) {
		assert.False(t, TopicConflict(
			"Local Bakery Wins Regional Award",
			"City Council Approves New Budget",
		))
	})
}

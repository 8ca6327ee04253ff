package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconScoreEmptyText(t *testing.T) {
	score, confidence, keywords := lexiconScore("   ")
	assert.Zero(t, score)
	assert.Zero(t, confidence)
	assert.Nil(t, keywords)
}

func TestLexiconScoreBalancedText(t *testing.T) {
	score, confidence, keywords := lexiconScore("the service was good but the followup was bad overall")
	assert.Zero(t, score)
	assert.InDelta(t, 0.2, confidence, 1e-9)
	assert.Equal(t, []string{"good", "bad"}, keywords)
}

func TestLexiconScoreClampsToMinusOne(t *testing.T) {
	score, _, _ := lexiconScore("terrible awful")
	assert.Equal(t, -1.0, score)
}

func TestLexiconScoreNormalizesByLength(t *testing.T) {
	// One hit in twenty words leaves the score well inside the clamp.
	text := "the package arrived a bit damaged but the rest of the order came through fine and on the agreed date"
	score, confidence, keywords := lexiconScore(text)
	assert.InDelta(t, -0.5, score, 1e-9)
	assert.InDelta(t, 0.1, confidence, 1e-9)
	assert.Equal(t, []string{"damaged"}, keywords)
}

func TestLexiconConfidenceCapped(t *testing.T) {
	_, confidence, _ := lexiconScore("bad terrible awful horrible slow late lost damaged broken rude")
	assert.Equal(t, 0.9, confidence)
}

func TestLexiconDedupesKeywords(t *testing.T) {
	_, _, keywords := lexiconScore("late late late")
	assert.Equal(t, []string{"late"}, keywords)
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	assert.Equal(t, []string{"driver", "was", "rude", "truck", "42"}, tokenize("Driver was RUDE! (truck #42)"))
}

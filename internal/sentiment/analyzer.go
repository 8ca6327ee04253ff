// Package sentiment scores support interactions: polarity, emotion, an
// NPS-like score and a feedback category. The primary path is an external
// classifier; a deterministic local lexicon takes over on any failure so
// a slow classifier never stalls a batch beyond its timeout.
package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Source labels recorded on each SentimentRecord.
const (
	SourceClassifier = "classifier"
	SourceLexicon    = "lexicon"
)

// Analyzer scores support tickets.
type Analyzer struct {
	classifier Classifier
	language   string
	clock      facts.Clock
}

// NewAnalyzer creates a sentiment analyzer. classifier may be nil, in
// which case every ticket takes the lexicon path.
func NewAnalyzer(classifier Classifier, cfg config.ClassifierConfig, clock facts.Clock) *Analyzer {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Analyzer{classifier: classifier, language: cfg.Language, clock: clock}
}

// Analyze scores one ticket. Deterministic given identical text and
// classifier response.
func (a *Analyzer) Analyze(ctx context.Context, t domain.TicketFact) *domain.SentimentRecord {
	text := strings.TrimSpace(strings.Join([]string{t.Subject, t.Description, t.ChatTranscript}, " "))

	record := &domain.SentimentRecord{
		TicketID:       t.TicketID,
		CustomerID:     t.CustomerID,
		TicketOpenedAt: t.OpenedAt,
		AnalyzedAt:     a.clock.Now(),
	}

	var emotionHint string
	if a.classifier != nil {
		resp, err := a.classifier.Classify(ctx, text, a.language)
		if err == nil {
			record.SentimentScore = resp.SentimentScore
			record.Confidence = domain.Clamp01(resp.Confidence)
			record.Keywords = resp.Keywords
			record.Source = SourceClassifier
			emotionHint = resp.PrimaryEmotion
		} else {
			logger.Warn("classifier unavailable, using lexicon fallback",
				"ticket_id", t.TicketID, "error", err.Error())
		}
	}
	if record.Source == "" {
		score, confidence, keywords := lexiconScore(text)
		record.SentimentScore = score
		record.Confidence = confidence
		record.Keywords = keywords
		record.Source = SourceLexicon
	}

	record.PrimaryEmotion = deriveEmotion(record.SentimentScore, text, emotionHint)
	record.NPSScore = npsScore(record.SentimentScore, record.Confidence, t.Priority)
	record.Category = categorize(text)
	return record
}

// Keyword overrides per emotion checked before the polarity thresholds.
// Ordered; first hit wins.
var emotionOverrides = []struct {
	emotion  domain.Emotion
	keywords []string
}{
	{domain.EmotionAnger, []string{"furious", "outraged", "angry", "unacceptable", "disgrace"}},
	{domain.EmotionFear, []string{"worried", "afraid", "scared", "concerned", "anxious"}},
	{domain.EmotionDisgust, []string{"disgusting", "appalling", "revolting", "gross"}},
	{domain.EmotionSurprise, []string{"surprised", "shocked", "unexpected", "astonished"}},
	{domain.EmotionAnticipation, []string{"looking forward", "hoping", "eager", "excited to"}},
}

func deriveEmotion(score float64, text, hint string) domain.Emotion {
	lower := strings.ToLower(text)
	for _, o := range emotionOverrides {
		for _, k := range o.keywords {
			if strings.Contains(lower, k) {
				return o.emotion
			}
		}
	}

	// A recognized classifier emotion wins over the threshold ladder.
	switch domain.Emotion(hint) {
	case domain.EmotionJoy, domain.EmotionTrust, domain.EmotionNeutral,
		domain.EmotionSadness, domain.EmotionAnger, domain.EmotionFear,
		domain.EmotionDisgust, domain.EmotionSurprise, domain.EmotionAnticipation:
		return domain.Emotion(hint)
	}

	switch {
	case score >= 0.6:
		return domain.EmotionJoy
	case score >= 0.2:
		return domain.EmotionTrust
	case score > -0.2:
		return domain.EmotionNeutral
	case score > -0.6:
		return domain.EmotionSadness
	default:
		return domain.EmotionAnger
	}
}

// npsScore maps sentiment onto a 0-10 scale, penalizes high-priority
// tickets, then pulls toward a neutral 5 in proportion to how little
// confidence the scorer had.
func npsScore(sentiment, confidence float64, priority domain.TicketPriority) int {
	raw := math.Round((sentiment + 1) / 2 * 10)
	if priority == domain.PriorityHigh || priority == domain.PriorityUrgent {
		raw -= 2
	}
	weighted := confidence*raw + (1-confidence)*5
	n := int(math.Round(weighted))
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return n
}

// Category keyword sets in priority order; first matching set wins.
var categoryRules = []struct {
	category domain.FeedbackCategory
	keywords []string
}{
	{domain.CategoryBilling, []string{"invoice", "billing", "charge", "payment", "refund", "price"}},
	{domain.CategoryTechnical, []string{"tracking", "website", "app", "login", "error", "portal", "api"}},
	{domain.CategoryService, []string{"delivery", "shipment", "late", "delayed", "driver", "pickup", "damaged"}},
	{domain.CategoryAccount, []string{"account", "password", "contract", "profile", "settings"}},
	{domain.CategoryFeatureRequest, []string{"feature", "suggestion", "would be great", "could you add", "request"}},
	{domain.CategoryPraise, []string{"thank", "great", "excellent", "amazing", "love"}},
	{domain.CategoryComplaint, []string{"complaint", "terrible", "awful", "unacceptable", "worst"}},
}

func categorize(text string) domain.FeedbackCategory {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneralInquiry
}

package service

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/repository"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// FallbackAnswer is returned when no FAQ matches.
const FallbackAnswer = "An admin will assist you shortly!"

// DefaultFAQ is the built-in knowledge base.
var DefaultFAQ = []domain.FAQEntry{
	{Question: "What is your return policy?", Answer: "We accept returns within 7 days of purchase. Items must be in original condition."},
	{Question: "How can I track my order?", Answer: "You can track your order in the 'Order History' section of your account."},
	{Question: "Do you offer international shipping?", Answer: "Yes, we ship internationally. Shipping costs and times vary by location."},
	{Question: "What payment methods do you accept?", Answer: "We accept Visa, MasterCard, PayPal, and other major payment methods."},
	{Question: "How can I contact customer support?", Answer: "You can reach us via live chat, email at support@example.com, or call +1-800-123-4567."},
	{Question: "Is my personal information secure?", Answer: "Yes, we use encryption and security best practices to protect your data."},
	{Question: "How do I reset my password?", Answer: "Go to the login page, click 'Forgot Password,' and follow the instructions."},
	{Question: "Can I cancel my order?", Answer: "Orders can be canceled within 12 hours of placement. Contact support for assistance."},
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "any": {}, "are": {}, "can": {}, "do": {}, "does": {},
	"for": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "you": {}, "your": {},
	"we": {}, "with": {}, "there": {}, "this": {}, "please": {},
}

// FAQModel answers a question from the FAQ list, typically with an LLM.
type FAQModel interface {
	Reply(ctx context.Context, entries []domain.FAQEntry, question string) (string, error)
}

// FAQAnswer is the responder's reply.
type FAQAnswer struct {
	Response string
	Matched  bool
}

// FAQService answers common questions and queues the rest for agents. With a
// model configured the model answers; keyword overlap is the fallback when
// there is no model or the model call fails.
type FAQService struct {
	entries  []domain.FAQEntry
	keywords []map[string]struct{}
	model    FAQModel
	repo     repository.FAQRepository
	logger   *zap.Logger
}

// NewFAQService builds the responder. model may be nil.
func NewFAQService(entries []domain.FAQEntry, repo repository.FAQRepository, model FAQModel, logger *zap.Logger) *FAQService {
	if len(entries) == 0 {
		entries = DefaultFAQ
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	keywords := make([]map[string]struct{}, len(entries))
	for i, e := range entries {
		keywords[i] = keywordSet(e.Question)
	}
	return &FAQService{
		entries:  entries,
		keywords: keywords,
		model:    model,
		repo:     repo,
		logger:   logger.With(zap.String("component", "faq_service")),
	}
}

// Answer replies to message. Unmatched questions are stored as pending.
func (s *FAQService) Answer(ctx context.Context, message string) (*FAQAnswer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("No input provided", nil)
	}

	if s.model != nil {
		reply, err := s.model.Reply(ctx, s.entries, message)
		if err == nil {
			if unsure(reply) {
				return s.queue(ctx, message)
			}
			return &FAQAnswer{Response: reply, Matched: true}, nil
		}
		s.logger.Warn("faq model unavailable; using keyword match", zap.Error(err))
	}

	if entry, ok := s.match(message); ok {
		return &FAQAnswer{Response: entry.Answer, Matched: true}, nil
	}
	return s.queue(ctx, message)
}

func (s *FAQService) queue(ctx context.Context, message string) (*FAQAnswer, error) {
	q := &domain.UnansweredQuestion{Question: message, Status: domain.QuestionStatusPending}
	if err := s.repo.CreateUnanswered(ctx, q); err != nil {
		s.logger.Error("failed to queue unanswered question", zap.Error(err))
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("queued unanswered question", zap.String("question_id", q.ID))
	return &FAQAnswer{Response: FallbackAnswer}, nil
}

// Pending lists questions waiting for an agent.
func (s *FAQService) Pending(ctx context.Context, limit int) ([]domain.UnansweredQuestion, error) {
	return s.repo.ListPending(ctx, limit)
}

// unsure reports a reply that does not answer the question.
func unsure(reply string) bool {
	reply = strings.ToLower(strings.TrimSpace(reply))
	return reply == "" ||
		strings.Contains(reply, "i'm not sure") ||
		strings.Contains(reply, "i’m not sure") ||
		strings.Contains(reply, "i am not sure")
}

// match picks the entry sharing the most keywords with message. At least two
// shared keywords, or every keyword of a short question, are required.
func (s *FAQService) match(message string) (domain.FAQEntry, bool) {
	words := keywordSet(message)
	best, bestScore := -1, 0
	for i, kw := range s.keywords {
		score := 0
		for w := range kw {
			if _, ok := words[w]; ok {
				score++
			}
		}
		if score == 0 || (score < 2 && score < len(kw)) {
			continue
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return domain.FAQEntry{}, false
	}
	return s.entries[best], true
}

func keywordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop || len(f) < 3 {
			continue
		}
		set[stem(f)] = struct{}{}
	}
	return set
}

// stem drops a plural "s" so "orders" matches "order".
func stem(word string) string {
	if len(word) > 4 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}

package domain

import "time"

// QuestionStatus tracks follow-up on questions the FAQ responder could not answer.
type QuestionStatus string

const QuestionStatusPending QuestionStatus = "pending"

// FAQEntry is a canned question and answer pair.
type FAQEntry struct {
	Question string
	Answer   string
}

// UnansweredQuestion is queued for a human agent.
type UnansweredQuestion struct {
	ID        string
	Question  string
	Status    QuestionStatus
	CreatedAt time.Time
}

package domain

import "time"

// QuestionType selects what a question asks about a word.
type QuestionType string

const (
	TypeMeaning   QuestionType = "meaning"
	TypeSynonyms  QuestionType = "synonyms"
	TypeAntonyms  QuestionType = "antonyms"
	TypeFillBlank QuestionType = "fill-blank"
	// TypeMixed is a configuration-only value; fetched questions always
	// carry one of the four concrete types.
	TypeMixed QuestionType = "mixed"
)

// WordStatus tracks where a word sits in the learning cycle.
type WordStatus string

const (
	StatusAll       WordStatus = "all" // filter-only value, never stored
	StatusLearning  WordStatus = "learning"
	StatusReviewing WordStatus = "reviewing"
	StatusMastered  WordStatus = "mastered"
)

// NoAnswer marks a question the user never answered. A distinct constant so
// an empty option text can never read as "unanswered".
const NoAnswer = "no answer"

// Word is a vocabulary entry as stored by the word source.
type Word struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Meaning  string     `json:"meaning"`
	Synonyms []string   `json:"synonyms,omitempty"`
	Antonyms []string   `json:"antonyms,omitempty"`
	Example  string     `json:"example,omitempty"`
	Status   WordStatus `json:"status"`
}

// QuizConfiguration is the user's choice for one attempt. Immutable once a
// session starts; preserved across failed fetches so the user can adjust.
type QuizConfiguration struct {
	QuestionType  QuestionType `json:"questionType"`
	QuestionCount int          `json:"questionCount"`
	StatusFilter  WordStatus   `json:"statusFilter"`
}

// Question is one multiple-choice question. Options contain CorrectAnswer
// exactly once; duplicate distractor text is left to the provider.
type Question struct {
	WordID        string       `json:"wordId"`
	Word          string       `json:"word"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Type          QuestionType `json:"type"`
}

// ResultEntry is the finalized outcome for one question, in original order.
type ResultEntry struct {
	WordID         string `json:"wordId"`
	Word           string `json:"word"`
	Prompt         string `json:"prompt"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// SubmissionSummary is what the scoring service reports back.
type SubmissionSummary struct {
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

// QuizResult is the immutable record derived when a session finishes.
type QuizResult struct {
	SessionID    string        `json:"sessionId"`
	QuestionType QuestionType  `json:"questionType"`
	Entries      []ResultEntry `json:"entries"`
	FinishedAt   time.Time     `json:"finishedAt"`
}

// ReviewReport aggregates the per-word outcome of marking incorrect answers
// for review. Failed words can be retried by invoking the action again.
type ReviewReport struct {
	Marked []string `json:"marked"`
	Failed []string `json:"failed"`
}

// AllMarked reports whether every requested status update went through.
func (r ReviewReport) AllMarked() bool {
	return len(r.Failed) == 0
}

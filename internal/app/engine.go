package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// QuestionProvider fetches questions for a configuration (from cache/backing store).
type QuestionProvider interface {
	Questions(ctx context.Context, cfg domain.QuizConfiguration) ([]domain.Question, error)
}

// ResultSubmitter delivers a finished result to the scoring service.
type ResultSubmitter interface {
	SubmitResult(ctx context.Context, result domain.QuizResult) (domain.SubmissionSummary, error)
}

// WordStatusService updates a word's learning status.
type WordStatusService interface {
	UpdateStatus(ctx context.Context, wordID string, status domain.WordStatus) error
}

// State is the lifecycle phase of a quiz attempt.
type State string

const (
	StateConfiguring State = "configuring"
	StateLoading     State = "loading"
	StateInProgress  State = "in-progress"
	StateFinished    State = "finished"
)

// SubmissionState tracks the result submission independently of the local
// transition to Finished; a failed submission never blocks local results.
type SubmissionState string

const (
	SubmissionNone    SubmissionState = ""
	SubmissionPending SubmissionState = "pending"
	SubmissionDone    SubmissionState = "submitted"
	SubmissionFailed  SubmissionState = "failed"
)

// SubmissionStatus is the outcome of the fire-and-forget result submission.
type SubmissionStatus struct {
	State   SubmissionState          `json:"state"`
	Summary domain.SubmissionSummary `json:"summary"`
	Error   string                   `json:"error,omitempty"`
}

// Snapshot is a read-only view of the engine for the presentation layer.
type Snapshot struct {
	State            State                    `json:"state"`
	SessionID        string                   `json:"sessionId,omitempty"`
	Config           domain.QuizConfiguration `json:"config"`
	CurrentIndex     int                      `json:"currentIndex"`
	CurrentQuestion  *domain.Question         `json:"currentQuestion,omitempty"`
	TotalQuestions   int                      `json:"totalQuestions"`
	Answers          map[string]string        `json:"answers"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	TimerRunning     bool                     `json:"timerRunning"`
	Submission       SubmissionStatus         `json:"submission"`
}

// Engine owns one quiz attempt at a time: configuration, question fetch,
// in-progress answer/navigation state, the countdown timer, and the finished
// result. All methods serialize on one mutex, so user actions, timer ticks,
// and async completions never interleave mid-transition.
type Engine struct {
	provider QuestionProvider
	results  ResultSubmitter
	statuses WordStatusService

	secondsPerQuestion int
	tickInterval       time.Duration
	now                func() time.Time

	mu               sync.Mutex
	state            State
	config           domain.QuizConfiguration
	sessionID        string
	questions        []domain.Question
	answers          map[string]string
	currentIndex     int
	remainingSeconds int
	timerRunning     bool
	finished         bool
	submitted        bool
	result           *domain.QuizResult
	submission       SubmissionStatus
	// generation increments on every reset; stale fetch completions and
	// timer ticks carry the generation they started under and are discarded
	// when it no longer matches.
	generation  uint64
	timerStop   chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// NewEngine builds an engine with the default 30s-per-question budget.
func NewEngine(provider QuestionProvider, results ResultSubmitter, statuses WordStatusService) *Engine {
	return NewEngineWithTiming(provider, results, statuses, 30, time.Second)
}

// NewEngineWithTiming exposes the per-question budget and tick interval;
// tests shrink the interval to drive the countdown deterministically.
func NewEngineWithTiming(provider QuestionProvider, results ResultSubmitter, statuses WordStatusService, secondsPerQuestion int, tickInterval time.Duration) *Engine {
	if secondsPerQuestion <= 0 {
		secondsPerQuestion = 30
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Engine{
		provider:           provider,
		results:            results,
		statuses:           statuses,
		secondsPerQuestion: secondsPerQuestion,
		tickInterval:       tickInterval,
		now:                time.Now,
		state:              StateConfiguring,
		subscribers:        make(map[chan Snapshot]struct{}),
	}
}

// Start fetches questions for cfg and opens a session. Blocks until the
// provider responds. Returns domain.ErrNoQuestions when the filters match
// nothing; the configuration is preserved either way so the caller can
// adjust and retry. A reset issued while the fetch is in flight wins: the
// late response is discarded and no session is created.
func (e *Engine) Start(ctx context.Context, cfg domain.QuizConfiguration) error {
	e.mu.Lock()
	if e.state != StateConfiguring {
		e.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	e.config = cfg
	e.state = StateLoading
	gen := e.generation
	e.notifyLocked()
	e.mu.Unlock()

	questions, err := e.provider.Questions(ctx, cfg)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		// Reset while loading; the discarded attempt must not resurrect.
		return nil
	}
	if err != nil {
		e.state = StateConfiguring
		e.notifyLocked()
		return err
	}
	if len(questions) == 0 {
		e.state = StateConfiguring
		e.notifyLocked()
		return domain.ErrNoQuestions
	}

	e.sessionID = uuid.NewString()
	e.questions = questions
	e.answers = make(map[string]string)
	e.currentIndex = 0
	e.remainingSeconds = len(questions) * e.secondsPerQuestion
	e.finished = false
	e.submitted = false
	e.result = nil
	e.submission = SubmissionStatus{}
	e.state = StateInProgress
	e.timerRunning = true
	stop := make(chan struct{})
	e.timerStop = stop
	go e.runTimer(gen, stop)
	e.notifyLocked()
	return nil
}

// SelectAnswer records (or overwrites) the answer for one question. Valid
// only while the session is in progress.
func (e *Engine) SelectAnswer(wordID, answer string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return domain.ErrSessionFinished
	}
	if e.state != StateInProgress {
		return domain.ErrNoSession
	}
	if !e.hasQuestionLocked(wordID) {
		return domain.ErrQuestionNotFound
	}
	e.answers[wordID] = answer
	e.notifyLocked()
	return nil
}

// NextQuestion advances the cursor; on the last question it finishes the
// session instead.
func (e *Engine) NextQuestion() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return domain.ErrInvalidTransition
	}
	if e.currentIndex >= len(e.questions)-1 {
		e.finishLocked()
		return nil
	}
	e.currentIndex++
	e.notifyLocked()
	return nil
}

// PreviousQuestion moves the cursor back one question. Going back never
// finishes the session and never touches recorded answers; at index 0 it is
// a no-op.
func (e *Engine) PreviousQuestion() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return domain.ErrInvalidTransition
	}
	if e.currentIndex > 0 {
		e.currentIndex--
		e.notifyLocked()
	}
	return nil
}

// Finish ends the session, derives the result, and kicks off the one-shot
// submission. Idempotent: finishing a finished session is a no-op.
func (e *Engine) Finish() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateFinished {
		return nil
	}
	if e.state != StateInProgress {
		return domain.ErrInvalidTransition
	}
	e.finishLocked()
	return nil
}

// Reset discards the attempt from any state and returns to Configuring.
// The chosen configuration survives so the user can tweak and go again.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.generation++
	e.state = StateConfiguring
	e.sessionID = ""
	e.questions = nil
	e.answers = nil
	e.currentIndex = 0
	e.remainingSeconds = 0
	e.finished = false
	e.submitted = false
	e.result = nil
	e.submission = SubmissionStatus{}
	e.notifyLocked()
}

// MarkIncorrectForReview flips every incorrectly answered word to the
// reviewing status, one independent request per word, and reports which
// succeeded and which failed. Successes are never rolled back; invoking the
// action again retries the failures (status updates are idempotent).
func (e *Engine) MarkIncorrectForReview(ctx context.Context) (domain.ReviewReport, error) {
	e.mu.Lock()
	if e.state != StateFinished || e.result == nil {
		e.mu.Unlock()
		return domain.ReviewReport{}, domain.ErrInvalidTransition
	}
	var incorrect []string
	for _, entry := range e.result.Entries {
		if !entry.IsCorrect {
			incorrect = append(incorrect, entry.WordID)
		}
	}
	e.mu.Unlock()

	if len(incorrect) == 0 {
		return domain.ReviewReport{}, nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report domain.ReviewReport
	)
	for _, wordID := range incorrect {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := e.statuses.UpdateStatus(ctx, id, domain.StatusReviewing)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, id)
			} else {
				report.Marked = append(report.Marked, id)
			}
		}(wordID)
	}
	wg.Wait()
	sort.Strings(report.Marked)
	sort.Strings(report.Failed)
	return report, nil
}

// RetrySubmission re-sends the result after a failed submission. A no-op
// while a submission is pending or already acknowledged.
func (e *Engine) RetrySubmission() error {
	e.mu.Lock()
	if e.state != StateFinished || e.result == nil {
		e.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if e.submission.State != SubmissionFailed {
		e.mu.Unlock()
		return nil
	}
	e.submission = SubmissionStatus{State: SubmissionPending}
	gen := e.generation
	result := *e.result
	e.notifyLocked()
	e.mu.Unlock()

	go e.submit(gen, result)
	return nil
}

// Snapshot returns the current view of the attempt.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Result returns the finalized result once the session has finished.
func (e *Engine) Result() (domain.QuizResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return domain.QuizResult{}, false
	}
	return *e.result, true
}

// Subscribe returns a channel that receives a snapshot on every state
// change, including timer ticks. The caller must invoke the returned cancel
// function to avoid leaks.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	initial := e.snapshotLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) runTimer(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.tick(gen) {
				return
			}
		}
	}
}

// tick decrements the countdown by one second and auto-finishes at zero.
// Returns false once the timer goroutine should exit.
func (e *Engine) tick(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || e.state != StateInProgress || !e.timerRunning {
		return false
	}
	if e.remainingSeconds > 0 {
		e.remainingSeconds--
	}
	if e.remainingSeconds == 0 {
		e.finishLocked()
		return false
	}
	e.notifyLocked()
	return true
}

// finishLocked performs the one-shot transition to Finished: stop the timer,
// derive the result in original question order, and hand the result to the
// submitter without blocking the transition. Callers hold e.mu.
func (e *Engine) finishLocked() {
	if e.finished {
		return
	}
	e.stopTimerLocked()
	e.finished = true
	e.state = StateFinished

	entries := make([]domain.ResultEntry, 0, len(e.questions))
	for _, q := range e.questions {
		selected, answered := e.answers[q.WordID]
		if !answered {
			selected = domain.NoAnswer
		}
		entries = append(entries, domain.ResultEntry{
			WordID:         q.WordID,
			Word:           q.Word,
			Prompt:         q.Prompt,
			SelectedAnswer: selected,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      answered && selected == q.CorrectAnswer,
		})
	}
	e.result = &domain.QuizResult{
		SessionID:    e.sessionID,
		QuestionType: e.config.QuestionType,
		Entries:      entries,
		FinishedAt:   e.now(),
	}

	if !e.submitted {
		e.submitted = true
		e.submission = SubmissionStatus{State: SubmissionPending}
		go e.submit(e.generation, *e.result)
	}
	e.notifyLocked()
}

func (e *Engine) submit(gen uint64, result domain.QuizResult) {
	summary, err := e.results.SubmitResult(context.Background(), result)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return
	}
	if err != nil {
		e.submission = SubmissionStatus{State: SubmissionFailed, Error: err.Error()}
	} else {
		e.submission = SubmissionStatus{State: SubmissionDone, Summary: summary}
	}
	e.notifyLocked()
}

func (e *Engine) stopTimerLocked() {
	e.timerRunning = false
	if e.timerStop != nil {
		close(e.timerStop)
		e.timerStop = nil
	}
}

func (e *Engine) hasQuestionLocked(wordID string) bool {
	for i := range e.questions {
		if e.questions[i].WordID == wordID {
			return true
		}
	}
	return false
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            e.state,
		SessionID:        e.sessionID,
		Config:           e.config,
		CurrentIndex:     e.currentIndex,
		TotalQuestions:   len(e.questions),
		RemainingSeconds: e.remainingSeconds,
		TimerRunning:     e.timerRunning,
		Submission:       e.submission,
	}
	if e.state == StateInProgress && e.currentIndex < len(e.questions) {
		q := e.questions[e.currentIndex]
		snap.CurrentQuestion = &q
	}
	answers := make(map[string]string, len(e.answers))
	for wordID, answer := range e.answers {
		answers[wordID] = answer
	}
	snap.Answers = answers
	return snap
}

func (e *Engine) notifyLocked() {
	snap := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow consumer never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vocab-quiz-service/internal/domain"
	"vocab-quiz-service/internal/infra/memory"
)

func TestStartInitializesSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(5))

	cfg := domain.QuizConfiguration{QuestionType: domain.TypeMeaning, QuestionCount: 5, StatusFilter: domain.StatusAll}
	if err := engine.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := engine.Snapshot()
	if snap.State != StateInProgress {
		t.Fatalf("expected in-progress, got %s", snap.State)
	}
	if snap.RemainingSeconds != 150 {
		t.Fatalf("expected 150 seconds for 5 questions, got %d", snap.RemainingSeconds)
	}
	if !snap.TimerRunning {
		t.Fatalf("expected timer running")
	}
	if snap.CurrentIndex != 0 || snap.TotalQuestions != 5 || len(snap.Answers) != 0 {
		t.Fatalf("unexpected initial session: %+v", snap)
	}
	if snap.CurrentQuestion == nil || snap.CurrentQuestion.WordID != "w0" {
		t.Fatalf("expected first question, got %+v", snap.CurrentQuestion)
	}
}

func TestStartEmptyPoolReportsNoQuestions(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	cfg := domain.QuizConfiguration{QuestionType: domain.TypeAntonyms, QuestionCount: 10, StatusFilter: domain.StatusMastered}
	err := engine.Start(context.Background(), cfg)
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	snap := engine.Snapshot()
	if snap.State != StateConfiguring {
		t.Fatalf("expected configuring, got %s", snap.State)
	}
	// Chosen configuration stays visible so the user can adjust filters.
	if snap.Config != cfg {
		t.Fatalf("expected config preserved, got %+v", snap.Config)
	}
}

func TestStartProviderFailure(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	engine.provider.(*stubProvider).err = errors.New("provider down")

	err := engine.Start(context.Background(), meaningConfig(3))
	if err == nil || errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if snap := engine.Snapshot(); snap.State != StateConfiguring {
		t.Fatalf("expected configuring after failure, got %s", snap.State)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	engine, results, _ := newTestEngine(t, sampleQuestions(2))
	mustStart(t, engine, meaningConfig(2))

	if err := engine.SelectAnswer("w0", "correct-0"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := engine.NextQuestion(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := engine.PreviousQuestion(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if err := engine.SelectAnswer("w0", "wrong-0"); err != nil {
		t.Fatalf("reselect: %v", err)
	}

	snap := engine.Snapshot()
	if len(snap.Answers) != 1 {
		t.Fatalf("expected exactly one recorded answer, got %d", len(snap.Answers))
	}
	if snap.Answers["w0"] != "wrong-0" {
		t.Fatalf("expected latest answer to win, got %q", snap.Answers["w0"])
	}

	if err := engine.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	result, ok := engine.Result()
	if !ok {
		t.Fatalf("expected result")
	}
	if result.Entries[0].SelectedAnswer != "wrong-0" || result.Entries[0].IsCorrect {
		t.Fatalf("result must reflect the latest answer: %+v", result.Entries[0])
	}
	waitForSubmission(t, engine, SubmissionDone)
	if results.Attempts(result.SessionID) != 1 {
		t.Fatalf("expected one submission, got %d", results.Attempts(result.SessionID))
	}
}

func TestSelectAnswerUnknownWord(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(1))
	mustStart(t, engine, meaningConfig(1))

	if err := engine.SelectAnswer("nope", "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestNextOnLastQuestionFinishes(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(2))
	mustStart(t, engine, meaningConfig(2))

	if err := engine.NextQuestion(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := engine.NextQuestion(); err != nil {
		t.Fatalf("next on last: %v", err)
	}
	snap := engine.Snapshot()
	if snap.State != StateFinished {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	if snap.TimerRunning {
		t.Fatalf("timer must stop on finish")
	}
}

func TestPreviousAtFirstQuestionIsNoop(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(2))
	mustStart(t, engine, meaningConfig(2))

	if err := engine.PreviousQuestion(); err != nil {
		t.Fatalf("previous at 0: %v", err)
	}
	if snap := engine.Snapshot(); snap.CurrentIndex != 0 || snap.State != StateInProgress {
		t.Fatalf("previous must never finish or underflow: %+v", snap)
	}
}

func TestFinishIdempotentSubmitsOnce(t *testing.T) {
	engine, results, _ := newTestEngine(t, sampleQuestions(3))
	mustStart(t, engine, meaningConfig(3))

	if err := engine.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := engine.Finish(); err != nil {
		t.Fatalf("finish twice must be a no-op: %v", err)
	}
	waitForSubmission(t, engine, SubmissionDone)

	result, _ := engine.Result()
	if results.Attempts(result.SessionID) != 1 {
		t.Fatalf("expected exactly one submission, got %d", results.Attempts(result.SessionID))
	}
	if err := engine.SelectAnswer("w0", "late"); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
}

func TestCountdownAutoFinishes(t *testing.T) {
	provider := &stubProvider{questions: sampleQuestions(5)}
	engine := NewEngineWithTiming(provider, memory.NewResultStore(), memory.NewStatusRecorder(), 1, time.Hour)
	mustStart(t, engine, meaningConfig(5))

	for _, wordID := range []string{"w0", "w1", "w2"} {
		if err := engine.SelectAnswer(wordID, "correct-"+wordID[1:]); err != nil {
			t.Fatalf("select %s: %v", wordID, err)
		}
	}

	// Drive the countdown by hand: 5 questions at 1s each.
	gen := currentGeneration(engine)
	for i := 0; i < 4; i++ {
		if !engine.tick(gen) {
			t.Fatalf("tick %d should keep the timer alive", i)
		}
	}
	if engine.tick(gen) {
		t.Fatalf("final tick should stop the timer")
	}

	snap := engine.Snapshot()
	if snap.State != StateFinished || snap.RemainingSeconds != 0 {
		t.Fatalf("expected auto-finish at zero, got %+v", snap)
	}

	result, ok := engine.Result()
	if !ok || len(result.Entries) != 5 {
		t.Fatalf("expected 5 result entries, got %+v", result)
	}
	unanswered := 0
	for _, entry := range result.Entries {
		if entry.SelectedAnswer == domain.NoAnswer {
			unanswered++
			if entry.IsCorrect {
				t.Fatalf("missing answer can never be correct: %+v", entry)
			}
		}
	}
	if unanswered != 2 {
		t.Fatalf("expected 2 unanswered entries, got %d", unanswered)
	}

	// Stale ticks after finish are discarded.
	if engine.tick(gen) {
		t.Fatalf("tick after finish must be a no-op")
	}
	if snap := engine.Snapshot(); snap.RemainingSeconds != 0 {
		t.Fatalf("remaining seconds must stay at zero, got %d", snap.RemainingSeconds)
	}
}

func TestTimerExpiryWithRealTicker(t *testing.T) {
	provider := &stubProvider{questions: sampleQuestions(1)}
	results := memory.NewResultStore()
	engine := NewEngineWithTiming(provider, results, memory.NewStatusRecorder(), 2, time.Millisecond)

	mustStart(t, engine, meaningConfig(1))

	deadline := time.Now().Add(2 * time.Second)
	for engine.Snapshot().State != StateFinished {
		if time.Now().After(deadline) {
			t.Fatalf("timer never finished the session")
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitForSubmission(t, engine, SubmissionDone)

	result, _ := engine.Result()
	if results.Attempts(result.SessionID) != 1 {
		t.Fatalf("timer expiry must submit exactly once, got %d", results.Attempts(result.SessionID))
	}
}

func TestResetDiscardsPendingFetch(t *testing.T) {
	gate := make(chan struct{})
	provider := &stubProvider{questions: sampleQuestions(3), gate: gate}
	engine := NewEngineWithTiming(provider, memory.NewResultStore(), memory.NewStatusRecorder(), 30, time.Hour)

	started := make(chan error, 1)
	go func() {
		started <- engine.Start(context.Background(), meaningConfig(3))
	}()

	waitFor(t, func() bool { return engine.Snapshot().State == StateLoading })
	engine.Reset()
	close(gate)

	if err := <-started; err != nil {
		t.Fatalf("discarded start must not error: %v", err)
	}
	snap := engine.Snapshot()
	if snap.State != StateConfiguring || snap.TotalQuestions != 0 || snap.SessionID != "" {
		t.Fatalf("late fetch must not resurrect the session: %+v", snap)
	}

	// A fresh start is fully independent of the discarded attempt.
	if err := engine.Start(context.Background(), meaningConfig(3)); err != nil {
		t.Fatalf("restart: %v", err)
	}
	snap = engine.Snapshot()
	if snap.State != StateInProgress || len(snap.Answers) != 0 || snap.RemainingSeconds != 90 {
		t.Fatalf("expected pristine session, got %+v", snap)
	}
}

func TestResetStopsTimerAndClearsState(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(2))
	mustStart(t, engine, meaningConfig(2))

	if err := engine.SelectAnswer("w0", "correct-0"); err != nil {
		t.Fatalf("select: %v", err)
	}
	staleGen := currentGeneration(engine)
	engine.Reset()

	snap := engine.Snapshot()
	if snap.State != StateConfiguring || snap.TimerRunning || len(snap.Answers) != 0 || snap.TotalQuestions != 0 {
		t.Fatalf("reset must discard the session: %+v", snap)
	}
	if engine.tick(staleGen) {
		t.Fatalf("stale tick must be discarded after reset")
	}
	if _, ok := engine.Result(); ok {
		t.Fatalf("reset must discard any result")
	}
}

func TestMarkIncorrectForReview(t *testing.T) {
	engine, _, statuses := newTestEngine(t, sampleQuestions(3))
	mustStart(t, engine, meaningConfig(3))

	if err := engine.SelectAnswer("w0", "correct-0"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := engine.SelectAnswer("w1", "wrong-1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	// w2 left unanswered: also incorrect.
	if err := engine.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	statuses.FailWord("w2", errors.New("persistence down"))
	report, err := engine.MarkIncorrectForReview(context.Background())
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(report.Marked) != 1 || report.Marked[0] != "w1" {
		t.Fatalf("expected w1 marked, got %+v", report)
	}
	if len(report.Failed) != 1 || report.Failed[0] != "w2" {
		t.Fatalf("expected w2 failed, got %+v", report)
	}
	if report.AllMarked() {
		t.Fatalf("partial failure must be visible")
	}
	if status, ok := statuses.Status("w1"); !ok || status != domain.StatusReviewing {
		t.Fatalf("expected w1 set to reviewing, got %s (ok=%v)", status, ok)
	}

	// Successes are not rolled back; invoking again retries the failure.
	statuses.FailWord("w2", nil)
	report, err = engine.MarkIncorrectForReview(context.Background())
	if err != nil {
		t.Fatalf("retry mark: %v", err)
	}
	if !report.AllMarked() || len(report.Marked) != 2 {
		t.Fatalf("expected full success on retry, got %+v", report)
	}
}

func TestMarkIncorrectNothingToMark(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(1))
	mustStart(t, engine, meaningConfig(1))

	if err := engine.SelectAnswer("w0", "correct-0"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := engine.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	report, err := engine.MarkIncorrectForReview(context.Background())
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(report.Marked) != 0 || len(report.Failed) != 0 {
		t.Fatalf("expected trivial success, got %+v", report)
	}

	if _, err := engine.MarkIncorrectForReview(context.Background()); err != nil {
		t.Fatalf("mark is idempotent-safe, got %v", err)
	}
}

func TestMarkIncorrectRequiresFinishedSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(1))
	if _, err := engine.MarkIncorrectForReview(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRetrySubmissionAfterFailure(t *testing.T) {
	engine, results, _ := newTestEngine(t, sampleQuestions(1))
	results.FailWith(errors.New("scoring down"))
	mustStart(t, engine, meaningConfig(1))

	if err := engine.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	waitForSubmission(t, engine, SubmissionFailed)

	// Local results stay viewable regardless of submission outcome.
	if _, ok := engine.Result(); !ok {
		t.Fatalf("result must survive a failed submission")
	}

	results.FailWith(nil)
	if err := engine.RetrySubmission(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	waitForSubmission(t, engine, SubmissionDone)

	snap := engine.Snapshot()
	if snap.Submission.Summary.TotalQuestions != 1 {
		t.Fatalf("expected summary after retry, got %+v", snap.Submission)
	}
	result, _ := engine.Result()
	if results.Attempts(result.SessionID) != 2 {
		t.Fatalf("expected 2 attempts (initial + retry), got %d", results.Attempts(result.SessionID))
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	engine, _, _ := newTestEngine(t, sampleQuestions(1))

	updates, cancel := engine.Subscribe()
	defer cancel()

	first := <-updates
	if first.State != StateConfiguring {
		t.Fatalf("expected initial configuring snapshot, got %s", first.State)
	}

	mustStart(t, engine, meaningConfig(1))
	waitFor(t, func() bool {
		select {
		case snap := <-updates:
			return snap.State == StateInProgress
		default:
			return false
		}
	})
}

func mustStart(t *testing.T, engine *Engine, cfg domain.QuizConfiguration) {
	t.Helper()
	if err := engine.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func meaningConfig(count int) domain.QuizConfiguration {
	return domain.QuizConfiguration{
		QuestionType:  domain.TypeMeaning,
		QuestionCount: count,
		StatusFilter:  domain.StatusAll,
	}
}

// newTestEngine wires stub infra with an effectively frozen timer so tests
// drive ticks by hand.
func newTestEngine(t *testing.T, questions []domain.Question) (*Engine, *memory.ResultStore, *memory.StatusRecorder) {
	t.Helper()
	provider := &stubProvider{questions: questions}
	results := memory.NewResultStore()
	statuses := memory.NewStatusRecorder()
	return NewEngineWithTiming(provider, results, statuses, 30, time.Hour), results, statuses
}

func currentGeneration(e *Engine) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func waitForSubmission(t *testing.T, engine *Engine, want SubmissionState) {
	t.Helper()
	waitFor(t, func() bool { return engine.Snapshot().Submission.State == want })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition never satisfied")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type stubProvider struct {
	questions []domain.Question
	err       error
	gate      chan struct{}
}

func (p *stubProvider) Questions(_ context.Context, _ domain.QuizConfiguration) ([]domain.Question, error) {
	if p.gate != nil {
		<-p.gate
	}
	return p.questions, p.err
}

func sampleQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			WordID:        fmt.Sprintf("w%d", i),
			Word:          fmt.Sprintf("word-%d", i),
			Prompt:        fmt.Sprintf("What does word-%d mean?", i),
			Options:       []string{fmt.Sprintf("correct-%d", i), fmt.Sprintf("wrong-%d", i), "neither", "both"},
			CorrectAnswer: fmt.Sprintf("correct-%d", i),
			Type:          domain.TypeMeaning,
		})
	}
	return questions
}

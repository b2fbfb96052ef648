package questions

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
)

// Source provides the word pool for a status filter.
type Source interface {
	LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error)
}

// Generator builds multiple-choice questions from a word pool. It guarantees
// that every emitted question carries the correct answer among its options
// exactly once; distractor text is drawn from other words in the pool.
type Generator struct {
	source      Source
	optionCount int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator builds a generator emitting optionCount options per question
// (minimum 2, default 4).
func NewGenerator(source Source, optionCount int) *Generator {
	if optionCount < 2 {
		optionCount = 4
	}
	return &Generator{
		source:      source,
		optionCount: optionCount,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Questions samples up to cfg.QuestionCount words matching the status filter
// and builds one question per word. A mixed configuration picks a concrete
// type per question among the types each word supports. Returns
// domain.ErrNoQuestions when the filtered pool yields nothing.
func (g *Generator) Questions(ctx context.Context, cfg domain.QuizConfiguration) ([]domain.Question, error) {
	if cfg.QuestionCount <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", cfg.QuestionCount)
	}

	pool, err := g.source.LoadWords(ctx, cfg.StatusFilter)
	if err != nil {
		return nil, fmt.Errorf("load word pool: %w", err)
	}

	eligible := make([]domain.Word, 0, len(pool))
	for _, w := range pool {
		if len(supportedTypes(w, cfg.QuestionType)) > 0 {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoQuestions
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.rnd.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	questions := make([]domain.Question, 0, cfg.QuestionCount)
	for _, w := range eligible {
		if len(questions) == cfg.QuestionCount {
			break
		}
		types := supportedTypes(w, cfg.QuestionType)
		qType := types[g.rnd.Intn(len(types))]
		q, ok := g.buildQuestion(w, qType, pool)
		if ok {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

// supportedTypes lists the concrete question types a word's content can
// back, intersected with the requested type.
func supportedTypes(w domain.Word, requested domain.QuestionType) []domain.QuestionType {
	var types []domain.QuestionType
	if w.Meaning != "" {
		types = append(types, domain.TypeMeaning)
	}
	if len(w.Synonyms) > 0 {
		types = append(types, domain.TypeSynonyms)
	}
	if len(w.Antonyms) > 0 {
		types = append(types, domain.TypeAntonyms)
	}
	if w.Example != "" && strings.Contains(strings.ToLower(w.Example), strings.ToLower(w.Text)) {
		types = append(types, domain.TypeFillBlank)
	}
	if requested == domain.TypeMixed {
		return types
	}
	for _, t := range types {
		if t == requested {
			return []domain.QuestionType{t}
		}
	}
	return nil
}

// buildQuestion assembles one question; returns false when not enough
// distinct distractors exist to offer at least two options.
func (g *Generator) buildQuestion(w domain.Word, qType domain.QuestionType, pool []domain.Word) (domain.Question, bool) {
	var prompt, correct string
	switch qType {
	case domain.TypeMeaning:
		prompt = fmt.Sprintf("What does %q mean?", w.Text)
		correct = w.Meaning
	case domain.TypeSynonyms:
		prompt = fmt.Sprintf("Which is a synonym of %q?", w.Text)
		correct = w.Synonyms[g.rnd.Intn(len(w.Synonyms))]
	case domain.TypeAntonyms:
		prompt = fmt.Sprintf("Which is an antonym of %q?", w.Text)
		correct = w.Antonyms[g.rnd.Intn(len(w.Antonyms))]
	case domain.TypeFillBlank:
		prompt = blankOut(w.Example, w.Text)
		correct = w.Text
	default:
		return domain.Question{}, false
	}

	distractors := g.distractors(w, qType, pool, correct)
	if len(distractors) == 0 {
		return domain.Question{}, false
	}

	options := append([]string{correct}, distractors...)
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.Question{
		WordID:        w.ID,
		Word:          w.Text,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: correct,
		Type:          qType,
	}, true
}

// distractors gathers up to optionCount-1 distinct wrong options of the same
// flavor as the correct answer, drawn from other words in the pool.
func (g *Generator) distractors(w domain.Word, qType domain.QuestionType, pool []domain.Word, correct string) []string {
	var candidates []string
	for _, other := range pool {
		if other.ID == w.ID {
			continue
		}
		switch qType {
		case domain.TypeMeaning:
			if other.Meaning != "" {
				candidates = append(candidates, other.Meaning)
			}
		case domain.TypeSynonyms:
			candidates = append(candidates, other.Synonyms...)
		case domain.TypeAntonyms:
			candidates = append(candidates, other.Antonyms...)
		case domain.TypeFillBlank:
			candidates = append(candidates, other.Text)
		}
	}

	g.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	seen := map[string]struct{}{correct: {}}
	picked := make([]string, 0, g.optionCount-1)
	for _, c := range candidates {
		if len(picked) == g.optionCount-1 {
			break
		}
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		picked = append(picked, c)
	}
	return picked
}

// blankOut replaces the word inside the example sentence with a blank,
// case-insensitively.
func blankOut(example, word string) string {
	lowerExample := strings.ToLower(example)
	lowerWord := strings.ToLower(word)
	idx := strings.Index(lowerExample, lowerWord)
	if idx < 0 {
		return example
	}
	return example[:idx] + "____" + example[idx+len(word):]
}

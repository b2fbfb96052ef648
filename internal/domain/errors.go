package domain

import "errors"

var (
	// ErrNoQuestions means the provider found zero questions for the chosen
	// filters. A legitimate empty result, distinct from transient failure.
	ErrNoQuestions = errors.New("no questions available for these filters")
	// ErrNoSession is returned when an action needs a live session and none exists.
	ErrNoSession = errors.New("no active quiz session")
	// ErrSessionFinished is returned when a mutation arrives after finish.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrInvalidTransition is returned for actions invoked from the wrong state.
	ErrInvalidTransition = errors.New("action not valid in current state")
	// ErrQuestionNotFound indicates an answer referenced an unknown word ID.
	ErrQuestionNotFound = errors.New("question not found in session")
	// ErrWordNotFound indicates a status update targeted an unknown word.
	ErrWordNotFound = errors.New("word not found")
)

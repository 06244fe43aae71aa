package domain

import "errors"

var (
	// ErrRoomNotFound is returned when an arena room has not been created yet.
	ErrRoomNotFound = errors.New("arena room not found")
	// ErrPlayerNotInRoom is returned when a user submits an answer before joining.
	ErrPlayerNotInRoom = errors.New("player not in room")
	// ErrQuestionNotFound indicates a question ID is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates the bank has no questions for a topic/difficulty pair.
	ErrNoQuestions = errors.New("no questions for topic and difficulty")
	// ErrInvalidTimeWindow indicates an unsupported leaderboard window.
	ErrInvalidTimeWindow = errors.New("invalid leaderboard time window")
)

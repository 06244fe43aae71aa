package domain

import "time"

// Question is an MCQ record from the question bank. CorrectAnswer holds the
// text of the winning option and is never sent to arena clients.
type Question struct {
	ID            int64  `json:"id"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Topic         string `json:"topic"`
	Subtopic      string `json:"subtopic,omitempty"`
	Difficulty    string `json:"difficulty"`
	Explanation   string `json:"explanation,omitempty"`
}

// Sanitized returns a copy safe to hand to players mid-round.
func (q Question) Sanitized() Question {
	q.CorrectAnswer = ""
	q.Explanation = ""
	return q
}

// Room event types broadcast on a room topic.
const (
	EventJoined      = "joined"
	EventPlayerList  = "playerList"
	EventAnswered    = "answered"
	EventRoundResult = "roundResult"
)

// RoomEvent is the single tagged message shape published to room subscribers.
// Fields beyond Type and RoomID are populated per variant.
type RoomEvent struct {
	Type          string   `json:"type"`
	RoomID        string   `json:"roomId"`
	UserID        string   `json:"userId,omitempty"`
	Players       []string `json:"players,omitempty"`
	QuestionIndex int      `json:"questionIndex,omitempty"`
}

// RoundAnswer is one player's submission for the current round.
type RoundAnswer struct {
	UserID        string
	QuestionIndex int
	Text          string
	SubmittedAt   time.Time
}

// UserProgress is the additive per-user aggregate updated on every scoring call.
type UserProgress struct {
	UserID         string    `json:"userId"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	XPPoints       int       `json:"xpPoints"`
	LastPlayed     time.Time `json:"lastPlayed"`
}

// ArenaResult is one immutable per-session row, append-only.
type ArenaResult struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Topic          string    `json:"topic"`
	Difficulty     string    `json:"difficulty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Accuracy       float64   `json:"accuracy"`
	TimeTaken      int       `json:"timeTaken"`
	PlayedAt       time.Time `json:"playedAt"`
}

// UserScore is an aggregated (userID, score) pair for windowed leaderboards.
type UserScore struct {
	UserID string
	Score  int
}

// UserStreak tracks consecutive-day activity. LastActiveDate is a calendar
// date; comparisons ignore the time of day.
type UserStreak struct {
	UserID                string    `json:"userId"`
	CurrentStreak         int       `json:"currentStreak"`
	LongestStreak         int       `json:"longestStreak"`
	LastActiveDate        time.Time `json:"lastActiveDate"`
	TotalLessonsCompleted int       `json:"totalLessonsCompleted"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Evaluation summarizes one scoring call.
type Evaluation struct {
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
	XPEarned       int `json:"xpEarned"`
	NewXPTotal     int `json:"newXpTotal"`
}

// TimeWindow selects the leaderboard aggregation range.
type TimeWindow string

const (
	WindowWeek    TimeWindow = "week"
	WindowMonth   TimeWindow = "month"
	WindowAllTime TimeWindow = "all-time"
)

// UserIdentity is the display info resolved from the user directory.
type UserIdentity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// LeaderboardEntry is one ranked row, enriched for display.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	XP          int    `json:"xp"`
	Badge       string `json:"badge"`
}

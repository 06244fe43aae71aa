package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"arena-service/internal/app"
	"arena-service/internal/domain"
)

// ArenaHandler exposes the synchronous arena surface: question sampling,
// scoring, stats, streaks, and leaderboards.
type ArenaHandler struct {
	bank        app.QuestionBank
	scoring     *app.ScoringService
	streaks     *app.StreakService
	leaderboard *app.LeaderboardService
}

func NewArenaHandler(bank app.QuestionBank, scoring *app.ScoringService, streaks *app.StreakService, leaderboard *app.LeaderboardService) *ArenaHandler {
	return &ArenaHandler{bank: bank, scoring: scoring, streaks: streaks, leaderboard: leaderboard}
}

// Register mounts all arena routes on the mux.
func (h *ArenaHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /arena/start", h.Start)
	mux.HandleFunc("POST /arena/submit", h.Submit)
	mux.HandleFunc("GET /arena/stats/{userId}", h.Stats)
	mux.HandleFunc("GET /arena/streak/{userId}", h.Streak)
	mux.HandleFunc("POST /arena/lesson-complete", h.LessonComplete)
	mux.HandleFunc("GET /arena/leaderboard", h.Leaderboard)
}

// Start samples questions for a session. Correct answers and explanations
// are stripped before the payload leaves the server.
func (h *ArenaHandler) Start(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	difficulty := r.URL.Query().Get("difficulty")
	if topic == "" || difficulty == "" {
		http.Error(w, "missing topic or difficulty", http.StatusBadRequest)
		return
	}
	count := 5
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	questions, err := h.bank.Sample(r.Context(), topic, difficulty, count)
	if errors.Is(err, domain.ErrNoQuestions) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("sample questions: %v", err)
		http.Error(w, "failed to load questions", http.StatusInternalServerError)
		return
	}

	sanitized := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		sanitized = append(sanitized, q.Sanitized())
	}
	writeJSON(w, http.StatusOK, sanitized)
}

type submitRequest struct {
	UserID     string           `json:"userId"`
	Topic      string           `json:"topic"`
	Difficulty string           `json:"difficulty"`
	TimeTaken  int              `json:"timeTaken"`
	Answers    map[int64]string `json:"answers"`
}

// Submit grades an end-of-game answer set and accrues XP. A failed
// persistence surfaces as a failed call rather than silently losing XP.
func (h *ArenaHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	evaluation, err := h.scoring.Evaluate(r.Context(), req.UserID, req.Answers, app.SessionMeta{
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		TimeTaken:  req.TimeTaken,
	})
	if err != nil {
		log.Printf("evaluate answers for %s: %v", req.UserID, err)
		http.Error(w, "failed to record results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, evaluation)
}

func (h *ArenaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	progress, found, err := h.scoring.Progress(r.Context(), userID)
	if err != nil {
		log.Printf("load progress for %s: %v", userID, err)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no progress recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *ArenaHandler) Streak(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	streak, err := h.streaks.GetStreak(r.Context(), userID)
	if err != nil {
		log.Printf("load streak for %s: %v", userID, err)
		http.Error(w, "failed to load streak", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

type lessonCompleteRequest struct {
	UserID string `json:"userId"`
}

func (h *ArenaHandler) LessonComplete(w http.ResponseWriter, r *http.Request) {
	var req lessonCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	streak, err := h.streaks.RecordCompletion(r.Context(), req.UserID)
	if err != nil {
		log.Printf("record completion for %s: %v", req.UserID, err)
		http.Error(w, "failed to record completion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// Leaderboard serves either the per-topic accuracy view (?topic=) or the
// windowed XP ranking (?window=week|month|all-time, default all-time).
func (h *ArenaHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if topic := r.URL.Query().Get("topic"); topic != "" {
		results, err := h.leaderboard.TopByTopic(r.Context(), topic)
		if err != nil {
			log.Printf("topic leaderboard %q: %v", topic, err)
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	window := domain.TimeWindow(r.URL.Query().Get("window"))
	if window == "" {
		window = domain.WindowAllTime
	}
	entries, err := h.leaderboard.Rank(r.Context(), window)
	if errors.Is(err, domain.ErrInvalidTimeWindow) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("leaderboard window %q: %v", window, err)
		http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

package app

import (
	"context"
	"sync"
	"time"

	"arena-service/internal/domain"
)

// RoomRepository abstracts how arena rooms are stored (in-memory, Redis-marked, etc).
type RoomRepository interface {
	GetOrCreate(roomID string) *Room
	Get(roomID string) (*Room, bool)
	DeleteIfEmpty(roomID string)
}

// ArenaService coordinates rooms, rounds, and the room broadcast topic.
type ArenaService struct {
	rooms         RoomRepository
	roundDeadline time.Duration
}

// NewArenaService builds the room coordinator. roundDeadline bounds how long a
// round may sit partially answered before it is force-completed; zero disables
// the bound.
func NewArenaService(rooms RoomRepository, roundDeadline time.Duration) *ArenaService {
	return &ArenaService{rooms: rooms, roundDeadline: roundDeadline}
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(id string) *Room {
	return newRoom(id, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(id string, now func() time.Time) *Room {
	return newRoom(id, now)
}

// Join adds a player to a room, creating the room on first contact. A "joined"
// event fires only for newly added players; the roster snapshot is always
// republished.
func (s *ArenaService) Join(_ context.Context, roomID, userID string) (bool, error) {
	room := s.rooms.GetOrCreate(roomID)
	return room.join(userID), nil
}

// SubmitAnswer records a player's answer for the room's current round and
// completes the round when every roster member has answered.
func (s *ArenaService) SubmitAnswer(_ context.Context, roomID, userID string, questionIndex int, answerText string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.recordAnswer(userID, questionIndex, answerText, s.roundDeadline)
}

// Subscribe returns a channel receiving the room's broadcast events, starting
// with a roster snapshot. The caller must invoke cancel to avoid leaks.
func (s *ArenaService) Subscribe(_ context.Context, roomID string) (<-chan domain.RoomEvent, func()) {
	room := s.rooms.GetOrCreate(roomID)
	return room.subscribe()
}

// Leave removes a player from the roster, discards their pending answer, and
// re-evaluates round completion for the shrunk roster. Empty rooms are dropped.
func (s *ArenaService) Leave(_ context.Context, roomID, userID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.leave(userID)
	if room.IsEmpty() {
		s.rooms.DeleteIfEmpty(roomID)
	}
}

// Roster returns a join-ordered snapshot of the room's players.
func (s *ArenaService) Roster(_ context.Context, roomID string) ([]string, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.roster(), nil
}

// PendingAnswers reports how many answers the room's current round holds.
func (s *ArenaService) PendingAnswers(_ context.Context, roomID string) (int, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	return room.answerCount(), nil
}

// Room owns one arena room: join-ordered roster, the current round's answer
// map, and the room's subscriber set. All mutation happens under mu, which
// also serializes broadcasts so subscribers observe per-room FIFO order.
type Room struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	order       []string
	present     map[string]struct{}
	answers     map[string]domain.RoundAnswer
	round       uint64
	roundTimer  *time.Timer
	subscribers map[chan domain.RoomEvent]struct{}
}

func newRoom(id string, now func() time.Time) *Room {
	return &Room{
		id:          id,
		createdAt:   now(),
		now:         now,
		present:     make(map[string]struct{}),
		answers:     make(map[string]domain.RoundAnswer),
		subscribers: make(map[chan domain.RoomEvent]struct{}),
	}
}

func (r *Room) join(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, already := r.present[userID]
	if !already {
		r.present[userID] = struct{}{}
		r.order = append(r.order, userID)
		r.publishLocked(domain.RoomEvent{Type: domain.EventJoined, RoomID: r.id, UserID: userID})
	}
	r.publishLocked(domain.RoomEvent{Type: domain.EventPlayerList, RoomID: r.id, Players: r.rosterLocked()})
	return !already
}

// recordAnswer appends (or overwrites) the player's answer for the current
// round and fires the round result when the answer map covers the roster.
// Record, compare, and clear all happen under one lock acquisition so two
// racing answers cannot both observe a complete round.
func (r *Room) recordAnswer(userID string, questionIndex int, answerText string, deadline time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.present[userID]; !ok {
		return domain.ErrPlayerNotInRoom
	}

	if len(r.answers) == 0 && deadline > 0 && r.roundTimer == nil {
		seq := r.round
		r.roundTimer = time.AfterFunc(deadline, func() { r.forceComplete(seq) })
	}

	r.answers[userID] = domain.RoundAnswer{
		UserID:        userID,
		QuestionIndex: questionIndex,
		Text:          answerText,
		SubmittedAt:   r.now(),
	}
	r.publishLocked(domain.RoomEvent{Type: domain.EventAnswered, RoomID: r.id, UserID: userID, QuestionIndex: questionIndex})

	if len(r.order) > 0 && len(r.answers) == len(r.order) {
		r.completeRoundLocked()
	}
	return nil
}

// forceComplete ends a round that sat past its deadline. The sequence check
// makes the timer a no-op when the round already completed naturally.
func (r *Room) forceComplete(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round != seq || len(r.answers) == 0 {
		return
	}
	r.completeRoundLocked()
}

func (r *Room) completeRoundLocked() {
	r.publishLocked(domain.RoomEvent{Type: domain.EventRoundResult, RoomID: r.id})
	r.answers = make(map[string]domain.RoundAnswer)
	r.round++
	if r.roundTimer != nil {
		r.roundTimer.Stop()
		r.roundTimer = nil
	}
}

func (r *Room) leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.present[userID]; !ok {
		return
	}
	delete(r.present, userID)
	delete(r.answers, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.publishLocked(domain.RoomEvent{Type: domain.EventPlayerList, RoomID: r.id, Players: r.rosterLocked()})

	// The departed player may have been the last holdout.
	if len(r.order) > 0 && len(r.answers) == len(r.order) {
		r.completeRoundLocked()
	}
}

func (r *Room) roster() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []string {
	snapshot := make([]string, len(r.order))
	copy(snapshot, r.order)
	return snapshot
}

func (r *Room) answerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answers)
}

func (r *Room) isEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) == 0
}

// IsEmpty reports whether the room has no players.
func (r *Room) IsEmpty() bool {
	return r.isEmpty()
}

func (r *Room) subscribe() (<-chan domain.RoomEvent, func()) {
	ch := make(chan domain.RoomEvent, 16)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := domain.RoomEvent{Type: domain.EventPlayerList, RoomID: r.id, Players: r.rosterLocked()}
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) publishLocked(event domain.RoomEvent) {
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			// A full buffer means the subscriber is far behind; shed the
			// oldest event rather than block the room.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Package session holds the per-user dialogue state of the bot.
package session

import (
	"sync"

	"students-bot/internal/models"
)

// State is the position of a user inside a dialogue.
type State int

const (
	Menu State = iota
	CollectingName
	CollectingSurname
	CollectingAge
	CollectingSchool
	CollectingTariff
	CollectingMentor
	CollectingPhone
	CollectingTelegramID
	CollectingParentName
	CollectingParentPhone
	ConfirmAdd
	Searching
	ChoosingStatusTarget
	ChoosingStatusValue
	ChoosingDeleteTarget
	ConfirmDelete
)

var stateNames = [...]string{
	Menu:                  "Menu",
	CollectingName:        "CollectingName",
	CollectingSurname:     "CollectingSurname",
	CollectingAge:         "CollectingAge",
	CollectingSchool:      "CollectingSchool",
	CollectingTariff:      "CollectingTariff",
	CollectingMentor:      "CollectingMentor",
	CollectingPhone:       "CollectingPhone",
	CollectingTelegramID:  "CollectingTelegramID",
	CollectingParentName:  "CollectingParentName",
	CollectingParentPhone: "CollectingParentPhone",
	ConfirmAdd:            "ConfirmAdd",
	Searching:             "Searching",
	ChoosingStatusTarget:  "ChoosingStatusTarget",
	ChoosingStatusValue:   "ChoosingStatusValue",
	ChoosingDeleteTarget:  "ChoosingDeleteTarget",
	ConfirmDelete:         "ConfirmDelete",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Collecting reports whether s is one of the add-dialogue field prompts.
func (s State) Collecting() bool {
	return s >= CollectingName && s <= CollectingParentPhone
}

// Session is the transient dialogue data of one user. Records in it are
// copies; the store stays the owner of the real ones.
type Session struct {
	State      State
	Draft      *models.Student
	Candidates []models.Student
	SelectedID string
}

// Reset returns the session to the menu and drops everything captured.
func (s *Session) Reset() {
	*s = Session{}
}

func (s *Session) idle() bool {
	return s.State == Menu && s.Draft == nil && len(s.Candidates) == 0 && s.SelectedID == ""
}

// AwaitingChoice reports whether a search produced several candidates that
// the user still has to pick from.
func (s *Session) AwaitingChoice() bool {
	return len(s.Candidates) > 1 && s.SelectedID == ""
}

// Candidate finds id among the candidates of the last search.
func (s *Session) Candidate(id string) (models.Student, bool) {
	for _, c := range s.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return models.Student{}, false
}

type slot struct {
	mu   sync.Mutex
	refs int // callers holding or waiting on mu; guarded by Store.mu
	sess Session
}

// Store partitions sessions by user id. Do holds a per-user lock for the
// whole callback, so one user's events never interleave while different
// users proceed independently. A session back at the menu with nothing
// captured is dropped once no caller holds it.
type Store struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

func NewStore() *Store {
	return &Store{slots: make(map[int64]*slot)}
}

func (s *Store) slot(userID int64) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{}
		s.slots[userID] = sl
	}
	sl.refs++
	return sl
}

// release runs with sl.mu held. Lock order is slot then store; slot never
// takes a slot lock while holding s.mu.
func (s *Store) release(userID int64, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.refs--
	if sl.refs == 0 && sl.sess.idle() {
		delete(s.slots, userID)
	}
}

// Do runs fn with exclusive access to the user's session, creating it on
// first contact.
func (s *Store) Do(userID int64, fn func(*Session)) {
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	defer s.release(userID, sl)
	fn(&sl.sess)
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID int64) Session {
	var out Session
	s.Do(userID, func(sess *Session) {
		out = *sess
		if sess.Draft != nil {
			d := *sess.Draft
			out.Draft = &d
		}
		out.Candidates = append([]models.Student(nil), sess.Candidates...)
	})
	return out
}

func (s *Store) Reset(userID int64) {
	s.Do(userID, func(sess *Session) { sess.Reset() })
}

// size is the number of sessions currently held.
func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

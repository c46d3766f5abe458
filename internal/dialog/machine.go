// Package dialog is the conversation state machine behind the bot menus.
//
// Handle takes one decoded event for one user, advances that user's
// session and returns the prompts to send back. Every (state, event) pair
// has an outcome; pairs that make no sense for the current state are
// ignored and return no prompts.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"students-bot/internal/models"
	"students-bot/internal/search"
	"students-bot/internal/session"
	"students-bot/internal/store"
)

// RecordStore is the part of the record store the dialogues need.
type RecordStore interface {
	Load() ([]models.Student, error)
	Append(s models.Student) error
	UpdateStatus(id string, status models.Status) error
	Remove(id string) error
}

type Machine struct {
	records  RecordStore
	sessions *session.Store
	log      *slog.Logger
	newID    func() string
}

func New(records RecordStore, sessions *session.Store, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		records:  records,
		sessions: sessions,
		log:      log.With("component", "dialog"),
		newID:    uuid.NewString,
	}
}

// Handle processes ev for userID. Calls for the same user are serialized.
func (m *Machine) Handle(ctx context.Context, userID int64, ev Event) []Prompt {
	var out []Prompt
	m.sessions.Do(userID, func(s *session.Session) {
		t := &turn{m: m, ctx: ctx, s: s, log: m.log.With("user_id", userID)}
		from := s.State
		out = t.step(ev)
		if from != s.State {
			t.log.DebugContext(ctx, "state changed", "from", from, "to", s.State)
		}
	})
	return out
}

// turn is the handling of a single event.
type turn struct {
	m   *Machine
	ctx context.Context
	s   *session.Session
	log *slog.Logger
}

func (t *turn) step(ev Event) []Prompt {
	switch ev := ev.(type) {
	case Start:
		t.s.Reset()
		return []Prompt{menuPrompt(msgWelcome)}
	case Text:
		return t.onText(strings.TrimSpace(ev.Text))
	case Button:
		return t.onCommand(ev.Command)
	}
	return nil
}

// finish ends the dialogue: prompts, then the menu again.
func (t *turn) finish(prompts ...Prompt) []Prompt {
	t.s.Reset()
	return append(prompts, menuPrompt(msgSelectAction))
}

func (t *turn) onText(text string) []Prompt {
	if text == "" {
		return nil
	}
	switch st := t.s.State; {
	case st == session.Menu:
		return []Prompt{menuPrompt(msgSelectAction)}
	case st.Collecting():
		return t.collect(text)
	case st == session.Searching, st == session.ChoosingStatusTarget, st == session.ChoosingDeleteTarget:
		return t.lookup(text)
	}
	return nil
}

func (t *turn) onCommand(cmd Command) []Prompt {
	switch c := cmd.(type) {
	case OpenMenu:
		return t.finish()
	case OpenAdd:
		if t.s.State != session.Menu {
			return nil
		}
		t.s.Reset()
		t.s.State = session.CollectingName
		t.s.Draft = &models.Student{}
		return []Prompt{say("Let's add a new student. What is the student's first name?")}
	case OpenSearch:
		return t.open(session.Searching, "Please enter the student's name or ID to search:")
	case OpenUpdate:
		return t.open(session.ChoosingStatusTarget, "Please enter the student's name or ID to update their status:")
	case OpenDelete:
		return t.open(session.ChoosingDeleteTarget, "Please enter the student's name or ID to delete:")
	case Confirm:
		switch t.s.State {
		case session.ConfirmAdd:
			return t.commitAdd()
		case session.ConfirmDelete:
			return t.commitDelete()
		}
		return nil
	case Cancel:
		switch t.s.State {
		case session.Menu:
			return nil
		case session.ConfirmAdd:
			return t.finish(say("Student addition cancelled."))
		case session.ConfirmDelete:
			return t.finish(say("Deletion cancelled."))
		}
		return t.finish(say("Cancelled."))
	case SelectCandidate:
		if !t.targeting() || !t.s.AwaitingChoice() {
			return nil
		}
		cand, ok := t.s.Candidate(c.ID)
		if !ok {
			return nil
		}
		return t.selected(cand)
	case SetStatus:
		if t.s.State != session.ChoosingStatusValue || t.s.SelectedID == "" {
			return nil
		}
		return t.commitStatus(c.Status)
	}
	return nil
}

func (t *turn) open(state session.State, question string) []Prompt {
	if t.s.State != session.Menu {
		return nil
	}
	t.s.Reset()
	t.s.State = state
	return []Prompt{say(question)}
}

func (t *turn) targeting() bool {
	switch t.s.State {
	case session.Searching, session.ChoosingStatusTarget, session.ChoosingDeleteTarget:
		return true
	}
	return false
}

type field struct {
	set  func(d *models.Student, v string)
	next session.State
	ask  string
}

// fields drives the add dialogue; CollectingAge and CollectingParentPhone
// are handled separately.
var fields = map[session.State]field{
	session.CollectingName: {
		set: func(d *models.Student, v string) { d.Name = v }, next: session.CollectingSurname,
		ask: "Great! Now, what is the student's surname?",
	},
	session.CollectingSurname: {
		set: func(d *models.Student, v string) { d.Surname = v }, next: session.CollectingAge,
		ask: "How old is the student?",
	},
	session.CollectingSchool: {
		set: func(d *models.Student, v string) { d.School = v }, next: session.CollectingTariff,
		ask: "What tariff is the student on?",
	},
	session.CollectingTariff: {
		set: func(d *models.Student, v string) { d.Tariff = v }, next: session.CollectingMentor,
		ask: "Who is the student's mentor?",
	},
	session.CollectingMentor: {
		set: func(d *models.Student, v string) { d.Mentor = v }, next: session.CollectingPhone,
		ask: "What is the student's phone number?",
	},
	session.CollectingPhone: {
		set: func(d *models.Student, v string) { d.Phone = v }, next: session.CollectingTelegramID,
		ask: "What is the student's Telegram ID? (If none, type 'None')",
	},
	session.CollectingTelegramID: {
		set: func(d *models.Student, v string) { d.TelegramID = models.NormalizeTelegramID(v) }, next: session.CollectingParentName,
		ask: "What is the parent's name?",
	},
	session.CollectingParentName: {
		set: func(d *models.Student, v string) { d.ParentName = v }, next: session.CollectingParentPhone,
		ask: "What is the parent's phone number?",
	},
}

func (t *turn) collect(text string) []Prompt {
	if t.s.Draft == nil {
		t.s.Draft = &models.Student{}
	}
	d := t.s.Draft
	switch t.s.State {
	case session.CollectingAge:
		age, err := strconv.Atoi(text)
		if err != nil || age < 0 {
			return []Prompt{say(msgBadAge)}
		}
		d.Age = age
		t.s.State = session.CollectingSchool
		return []Prompt{say("Which school does the student attend?")}
	case session.CollectingParentPhone:
		d.ParentPhone = text
		d.ID = t.m.newID()
		d.Status = models.StatusActive
		t.s.State = session.ConfirmAdd
		return []Prompt{confirmAddPrompt(*d)}
	}
	f, ok := fields[t.s.State]
	if !ok {
		return nil
	}
	f.set(d, text)
	t.s.State = f.next
	return []Prompt{say(f.ask)}
}

func (t *turn) lookup(query string) []Prompt {
	all, err := t.m.records.Load()
	if err != nil {
		t.log.ErrorContext(t.ctx, "load students", "err", err)
		return t.finish(say(msgLoadFailed))
	}
	found := search.Match(query, all)
	t.log.DebugContext(t.ctx, "search", "state", t.s.State, "query_len", len(query), "matches", len(found))
	switch len(found) {
	case 0:
		return t.finish(say(msgNotFound))
	case 1:
		t.s.Candidates = found
		return t.selected(found[0])
	}
	t.s.Candidates = found
	t.s.SelectedID = ""
	text := "Multiple students found. Please select one:"
	switch t.s.State {
	case session.Searching:
		text = fmt.Sprintf("Found %d students. Please select one to view:", len(found))
	case session.ChoosingDeleteTarget:
		text = "Multiple students found. Please select one to delete:"
	}
	return []Prompt{candidatesPrompt(text, found)}
}

// selected advances a target dialogue once exactly one record is chosen.
func (t *turn) selected(s models.Student) []Prompt {
	t.s.SelectedID = s.ID
	switch t.s.State {
	case session.Searching:
		return t.finish(say(s.Card()))
	case session.ChoosingStatusTarget:
		t.s.State = session.ChoosingStatusValue
		return []Prompt{statusPrompt(s)}
	case session.ChoosingDeleteTarget:
		t.s.State = session.ConfirmDelete
		return []Prompt{confirmDeletePrompt(s)}
	}
	return nil
}

func (t *turn) commitAdd() []Prompt {
	if t.s.Draft == nil {
		return t.finish()
	}
	d := *t.s.Draft
	if err := t.m.records.Append(d); err != nil {
		t.log.ErrorContext(t.ctx, "append student", "student_id", d.ID, "err", err)
		return []Prompt{say(msgNotSaved), confirmAddPrompt(d)}
	}
	t.log.InfoContext(t.ctx, "student added", "student_id", d.ID)
	t.s.Reset()
	return []Prompt{say("Student added successfully!"), afterAddPrompt()}
}

func (t *turn) commitStatus(status models.Status) []Prompt {
	id := t.s.SelectedID
	err := t.m.records.UpdateStatus(id, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t.log.WarnContext(t.ctx, "status target vanished", "student_id", id)
		return t.finish(say(msgGone))
	case err != nil:
		t.log.ErrorContext(t.ctx, "update status", "student_id", id, "err", err)
		return t.finish(say(msgNotSaved))
	}
	t.log.InfoContext(t.ctx, "status updated", "student_id", id, "status", status)
	return t.finish(say(fmt.Sprintf("Status updated to %s successfully!", status.Label())))
}

func (t *turn) commitDelete() []Prompt {
	id := t.s.SelectedID
	err := t.m.records.Remove(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t.log.WarnContext(t.ctx, "delete target vanished", "student_id", id)
		return t.finish(say(msgGone))
	case err != nil:
		t.log.ErrorContext(t.ctx, "remove student", "student_id", id, "err", err)
		return t.finish(say(msgNotSaved))
	}
	t.log.InfoContext(t.ctx, "student deleted", "student_id", id)
	return t.finish(say("Student deleted successfully!"))
}

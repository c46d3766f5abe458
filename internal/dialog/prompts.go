package dialog

import (
	"fmt"

	"students-bot/internal/models"
)

type Option struct {
	Label string
	Token string
}

// Prompt is one outbound message. Without options it is plain text,
// otherwise a choice rendered as buttons in order.
type Prompt struct {
	Text    string
	Options []Option
}

func (p Prompt) IsChoice() bool { return len(p.Options) > 0 }

func say(text string) Prompt { return Prompt{Text: text} }

func opt(label string, c Command) Option {
	return Option{Label: label, Token: EncodeCommand(c)}
}

const (
	msgWelcome      = "Welcome to the GC Education Database Bot!\nPlease select an action:"
	msgSelectAction = "Please select an action:"
	msgNotFound     = "No students found with that name or ID."
	msgGone         = "That student no longer exists."
	msgNotSaved     = "Update not saved, please try again."
	msgLoadFailed   = "Could not read the student database, please try again."
	msgBadAge       = "Please enter a valid age (a non-negative whole number)."
)

func menuPrompt(text string) Prompt {
	return Prompt{Text: text, Options: []Option{
		opt("Add Student", OpenAdd{}),
		opt("Search Student", OpenSearch{}),
		opt("Update Student Status", OpenUpdate{}),
		opt("Delete Student", OpenDelete{}),
	}}
}

func afterAddPrompt() Prompt {
	return Prompt{Text: "What would you like to do next?", Options: []Option{
		opt("Add Another Student", OpenAdd{}),
		opt("Main Menu", OpenMenu{}),
	}}
}

func confirmAddPrompt(s models.Student) Prompt {
	return Prompt{
		Text:    "Please confirm the student details:\n" + s.Card(),
		Options: []Option{opt("Confirm", Confirm{}), opt("Cancel", Cancel{})},
	}
}

func candidateLabel(s models.Student) string {
	return fmt.Sprintf("%s (ID: %s)", s.FullName(), s.ID)
}

func candidatesPrompt(text string, found []models.Student) Prompt {
	p := Prompt{Text: text}
	for _, s := range found {
		p.Options = append(p.Options, opt(candidateLabel(s), SelectCandidate{ID: s.ID}))
	}
	p.Options = append(p.Options, opt("Cancel", Cancel{}))
	return p
}

func statusPrompt(s models.Student) Prompt {
	p := Prompt{Text: fmt.Sprintf("Current status for %s: %s\nSelect new status:", s.FullName(), s.Status.Label())}
	for _, st := range models.Statuses {
		p.Options = append(p.Options, opt(st.Label(), SetStatus{Status: st}))
	}
	p.Options = append(p.Options, opt("Cancel", Cancel{}))
	return p
}

func confirmDeletePrompt(s models.Student) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Are you sure you want to delete %s?", candidateLabel(s)),
		Options: []Option{
			opt("Yes, delete this student", Confirm{}),
			opt("No, cancel", Cancel{}),
		},
	}
}

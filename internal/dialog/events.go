package dialog

import (
	"strings"

	"students-bot/internal/models"
)

// Event is an inbound chat event, already decoded by the transport.
type Event interface{ isEvent() }

// Start is the explicit restart entry point (/start).
type Start struct{}

// Text is a free-text message.
type Text struct{ Text string }

// Button is a click on a button the machine rendered earlier.
type Button struct{ Command Command }

func (Start) isEvent()  {}
func (Text) isEvent()   {}
func (Button) isEvent() {}

// Command is the closed set of actions a button can carry.
type Command interface{ isCommand() }

type (
	OpenAdd    struct{}
	OpenSearch struct{}
	OpenUpdate struct{}
	OpenDelete struct{}
	OpenMenu   struct{}
	Confirm    struct{}
	Cancel     struct{}

	SelectCandidate struct{ ID string }
	SetStatus       struct{ Status models.Status }
)

func (OpenAdd) isCommand()         {}
func (OpenSearch) isCommand()      {}
func (OpenUpdate) isCommand()      {}
func (OpenDelete) isCommand()      {}
func (OpenMenu) isCommand()        {}
func (Confirm) isCommand()         {}
func (Cancel) isCommand()          {}
func (SelectCandidate) isCommand() {}
func (SetStatus) isCommand()       {}

const (
	tokenAdd     = "add_student"
	tokenSearch  = "search_student"
	tokenUpdate  = "update_status"
	tokenDelete  = "delete_student"
	tokenMenu    = "main_menu"
	tokenConfirm = "confirm"
	tokenCancel  = "cancel"

	prefixSelect = "select:"
	prefixStatus = "status:"
)

// EncodeCommand renders c as button callback data.
func EncodeCommand(c Command) string {
	switch c := c.(type) {
	case OpenAdd:
		return tokenAdd
	case OpenSearch:
		return tokenSearch
	case OpenUpdate:
		return tokenUpdate
	case OpenDelete:
		return tokenDelete
	case OpenMenu:
		return tokenMenu
	case Confirm:
		return tokenConfirm
	case Cancel:
		return tokenCancel
	case SelectCandidate:
		return prefixSelect + c.ID
	case SetStatus:
		return prefixStatus + string(c.Status)
	}
	return ""
}

// DecodeCommand parses callback data produced by EncodeCommand. Anything
// else reports false and should be dropped by the caller.
func DecodeCommand(token string) (Command, bool) {
	switch token {
	case tokenAdd:
		return OpenAdd{}, true
	case tokenSearch:
		return OpenSearch{}, true
	case tokenUpdate:
		return OpenUpdate{}, true
	case tokenDelete:
		return OpenDelete{}, true
	case tokenMenu:
		return OpenMenu{}, true
	case tokenConfirm:
		return Confirm{}, true
	case tokenCancel:
		return Cancel{}, true
	}
	if id, ok := strings.CutPrefix(token, prefixSelect); ok && id != "" {
		return SelectCandidate{ID: id}, true
	}
	if raw, ok := strings.CutPrefix(token, prefixStatus); ok {
		if st, ok := models.ParseStatus(raw); ok {
			return SetStatus{Status: st}, true
		}
	}
	return nil, false
}

package bot

import (
	"strconv"
	"strings"
)

// maxAttempts is the strike limit for each elicitation phase. The three
// counters below are independent; exhausting any one ends the conversation.
const maxAttempts = 3

// Session attribute keys. The transport only round-trips flat string-keyed
// scalars, so everything below is encoded as a string.
const (
	attrTableAttempts    = "tableAttempts"
	attrValidateAttempts = "validateAttempts"
	attrDateAttempts     = "dateAttempts"
	attrConfirmedTables  = "confirmedTables"
	attrAwaitingMore     = "awaitingMore"
)

// session is the dialogue state carried between turns in the Lex session
// attribute bag. It is rebuilt from scratch on every invocation; no other
// memory survives a turn.
type session struct {
	// TableAttempts counts empty or placeholder table entries.
	TableAttempts int
	// ValidateAttempts counts table entries that failed catalog validation.
	ValidateAttempts int
	// DateAttempts counts turns spent eliciting the expiry date.
	DateAttempts int
	// Confirmed holds the validated table names accepted so far, in entry
	// order, without duplicates.
	Confirmed []string
	// AwaitingMore is true while the "add another table?" question is
	// pending an answer.
	AwaitingMore bool
}

// decodeSession rebuilds the dialogue state from the attribute bag. A missing
// or malformed field falls back to its zero value rather than erroring: the
// bag crosses an external boundary we do not control, and a fresh dialogue is
// the only sensible recovery. This lenience is contract, not an oversight.
func decodeSession(bag map[string]string) session {
	var s session
	if bag == nil {
		return s
	}
	s.TableAttempts = decodeInt(bag[attrTableAttempts])
	s.ValidateAttempts = decodeInt(bag[attrValidateAttempts])
	s.DateAttempts = decodeInt(bag[attrDateAttempts])
	if joined := bag[attrConfirmedTables]; joined != "" {
		for _, t := range strings.Split(joined, ",") {
			if t = strings.TrimSpace(t); t != "" {
				s.Confirmed = appendUnique(s.Confirmed, t)
			}
		}
	}
	s.AwaitingMore = bag[attrAwaitingMore] == "true"
	return s
}

// encode serializes the state back into the attribute bag form.
func (s session) encode() map[string]string {
	return map[string]string{
		attrTableAttempts:    strconv.Itoa(s.TableAttempts),
		attrValidateAttempts: strconv.Itoa(s.ValidateAttempts),
		attrDateAttempts:     strconv.Itoa(s.DateAttempts),
		attrConfirmedTables:  strings.Join(s.Confirmed, ","),
		attrAwaitingMore:     strconv.FormatBool(s.AwaitingMore),
	}
}

// confirm appends table to the confirmed list unless already present.
// The list only ever grows within one conversation.
func (s *session) confirm(table string) {
	s.Confirmed = appendUnique(s.Confirmed, table)
}

func decodeInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return list
		}
	}
	return append(list, value)
}

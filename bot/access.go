package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/scotty-bot/scotty/lex"
)

// Fresh-request utterances elicit the table slot without costing an attempt.
var freshRequests = map[string]bool{
	"access to":         true,
	"request access":    true,
	"request access to": true,
}

// handleTableAccess advances the table-access dialogue by one turn. The
// conversation moves through four phases, derived each turn from the slots
// and the session state: eliciting a table, deciding whether to add another,
// eliciting the expiry date, and granting.
func (b *Bot) handleTableAccess(ctx context.Context, event lex.Event) lex.Response {
	transcript := strings.ToLower(strings.TrimSpace(event.InputTranscript))

	if transcript == "show table access" {
		return b.handleDisplay(ctx, event)
	}

	s := decodeSession(event.SessionAttributes)

	tableValue := event.Slot(slotTable)
	originalValue := event.OriginalSlotValue(slotTable)
	if tableValue == "" || strings.EqualFold(originalValue, "table") {
		return b.elicitTable(s, event, transcript)
	}

	if s.AwaitingMore {
		return b.moreTablesDecision(ctx, s, event, transcript)
	}

	if resp, ok := b.acceptTables(ctx, &s, event); !ok {
		return resp
	}

	if event.Slot(slotDuration) == "" {
		s.AwaitingMore = true
		return lex.ConfirmIntent(s.encode(), IntentTableAccess, eventSlots(event),
			"Would you like to request access to more tables? (Y/N)")
	}

	return b.collectDate(ctx, s, event)
}

// elicitTable is the AwaitingTable phase for turns with no usable table
// input. Fresh request utterances prompt without penalty; anything else
// costs a table attempt.
func (b *Bot) elicitTable(s session, event lex.Event, transcript string) lex.Response {
	if freshRequests[transcript] {
		return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable),
			slotTable, "What table would you like access to?", nil)
	}

	if s.TableAttempts == maxAttempts-1 {
		s.TableAttempts = 0
		return b.attemptLimitReached()
	}
	s.TableAttempts++

	msg := fmt.Sprintf("Invalid table! Please enter a valid table! (%d attempt left)", maxAttempts-s.TableAttempts)
	return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable), slotTable, msg, nil)
}

// moreTablesDecision is the AwaitingMoreTablesDecision phase: the user was
// asked whether to add another table and this turn carries the answer.
func (b *Bot) moreTablesDecision(ctx context.Context, s session, event lex.Event, transcript string) lex.Response {
	confirmed := event.CurrentIntent != nil && event.CurrentIntent.ConfirmationStatus == lex.ConfirmationConfirmed
	denied := event.CurrentIntent != nil && event.CurrentIntent.ConfirmationStatus == lex.ConfirmationDenied

	switch {
	case confirmed || transcript == "y" || transcript == "yes":
		s.AwaitingMore = false
		return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable),
			slotTable, "Enter the next table.", nil)
	case denied || transcript == "n" || transcript == "no":
		s.AwaitingMore = false
		return b.collectDate(ctx, s, event)
	default:
		return lex.ConfirmIntent(s.encode(), IntentTableAccess, eventSlots(event),
			"Would you like to request access to more tables? (Y/N)")
	}
}

// acceptTables validates the comma-separated table utterance against the
// catalog. It returns ok=true once every token resolved to an exact match
// and was added to the confirmed list; otherwise the returned response
// re-elicits (unknown tables, ambiguous suffix) or ends the conversation
// (attempt limit, collaborator failure).
func (b *Bot) acceptTables(ctx context.Context, s *session, event lex.Event) (lex.Response, bool) {
	tables, blacklisted, err := b.tableSnapshot(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("table snapshot")
		return b.failure(), false
	}

	input := event.OriginalSlotValue(slotTable)
	if input == "" {
		input = event.Slot(slotTable)
	}

	var matched []string
	var unknown []string
	var ambiguous *candidate
	for _, token := range splitTables(input) {
		c := resolveTable(token, tables, blacklisted)
		switch c.kind {
		case matchExact:
			matched = append(matched, c.name)
		case matchAmbiguous:
			if ambiguous == nil {
				amb := c
				amb.name = token
				ambiguous = &amb
			}
		default:
			unknown = append(unknown, token)
		}
	}

	if len(unknown) > 0 {
		if s.ValidateAttempts == maxAttempts-1 {
			return b.attemptLimitReached(), false
		}
		s.ValidateAttempts++
		msg := fmt.Sprintf(
			"The table(s) you have entered do not exist or you do not have access to one or more requested table(s): %s. Enter valid table(s)! (%d attempt left)",
			strings.Join(unknown, ", "), maxAttempts-s.ValidateAttempts)
		return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable), slotTable, msg, nil), false
	}

	if ambiguous != nil {
		// A fresh pick is coming, so the entry counter starts over.
		s.TableAttempts = 0
		if len(ambiguous.options) > lex.OptionsPerPage {
			return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable),
				slotTable, "Too many options. Can you be more specific?", nil), false
		}
		title := fmt.Sprintf("Which one of the following %s tables are you looking for?", ambiguous.name)
		card := lex.NewResponseCard(title, "", ambiguous.options)
		return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotTable),
			slotTable, "Which one of these tables?", card), false
	}

	for _, table := range matched {
		s.confirm(table)
	}
	return lex.Response{}, true
}

// collectDate is the AwaitingDate phase: elicit, parse, and window-check the
// expiry date, then hand off to the grant builder.
func (b *Bot) collectDate(ctx context.Context, s session, event lex.Event) lex.Response {
	duration := event.Slot(slotDuration)
	if duration == "" {
		return b.elicitDate(s, event, "Until when would you like access (YYYY-MM-DD)?")
	}

	today := b.now()
	expiry, err := parseExpiry(duration, today)
	if err != nil {
		return b.elicitDate(s, event, fmt.Sprintf("I couldn't understand %q as a date (YYYY-MM-DD).", duration))
	}

	isoExpiry, reject := validateExpiry(expiry, today)
	if reject != "" {
		return b.elicitDate(s, event, reject)
	}

	return b.grant(ctx, s, event, isoExpiry)
}

// elicitDate re-prompts for the duration slot, spending one date attempt.
func (b *Bot) elicitDate(s session, event lex.Event, msg string) lex.Response {
	if s.DateAttempts == maxAttempts-1 {
		return b.attemptLimitReached()
	}
	s.DateAttempts++

	msg = fmt.Sprintf("%s (%d attempt left)", msg, maxAttempts-s.DateAttempts)
	return lex.ElicitSlot(s.encode(), IntentTableAccess, clearSlot(event, slotDuration), slotDuration, msg, nil)
}

// eventSlots copies the current slot values for echoing back to Lex.
func eventSlots(event lex.Event) map[string]string {
	out := make(map[string]string)
	if event.CurrentIntent != nil {
		for k, v := range event.CurrentIntent.Slots {
			out[k] = v
		}
	}
	return out
}

// clearSlot copies the slots with name reset, so the elicited slot is
// re-collected rather than re-validated.
func clearSlot(event lex.Event, name string) map[string]string {
	out := eventSlots(event)
	out[name] = ""
	return out
}

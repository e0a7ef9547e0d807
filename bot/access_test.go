package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/scotty-bot/scotty/lex"
)

func TestElicitTable(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh request prompts without penalty", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("request access to", map[string]string{"table": ""}, nil, nil))
		if resp.DialogAction.Type != "ElicitSlot" || resp.DialogAction.SlotToElicit != "table" {
			t.Fatalf("expected table elicitation, got %+v", resp.DialogAction)
		}
		expected := "What table would you like access to?"
		if message(resp) != expected {
			t.Errorf("expected: %q\nactual:%q", expected, message(resp))
		}
		if got := resp.SessionAttributes["tableAttempts"]; got != "0" {
			t.Errorf("expected no attempt spent, got %q", got)
		}
	})

	t.Run("empty entries cost attempts and then end the conversation", func(t *testing.T) {
		env := newTestEnv()

		resp := env.bot.Handle(ctx, accessEvent("gimme", map[string]string{"table": ""}, nil, nil))
		expected := "Invalid table! Please enter a valid table! (2 attempt left)"
		if message(resp) != expected {
			t.Fatalf("expected: %q\nactual:%q", expected, message(resp))
		}

		resp = env.bot.Handle(ctx, accessEvent("gimme", map[string]string{"table": ""}, nil, resp.SessionAttributes))
		expected = "Invalid table! Please enter a valid table! (1 attempt left)"
		if message(resp) != expected {
			t.Fatalf("expected: %q\nactual:%q", expected, message(resp))
		}

		resp = env.bot.Handle(ctx, accessEvent("gimme", map[string]string{"table": ""}, nil, resp.SessionAttributes))
		if resp.DialogAction.Type != "Close" {
			t.Fatalf("expected Close on third strike, got %q", resp.DialogAction.Type)
		}
		if !strings.Contains(message(resp), "attempt limit") {
			t.Errorf("expected attempt limit message, got %q", message(resp))
		}
	})

	t.Run("placeholder entry counts as empty", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("access to table",
			map[string]string{"table": "Users_PROD"}, map[string]string{"table": "Table"}, nil))
		if resp.DialogAction.SlotToElicit != "table" {
			t.Fatalf("expected table elicitation, got %+v", resp.DialogAction)
		}
		if got := resp.SessionAttributes["tableAttempts"]; got != "1" {
			t.Errorf("expected one attempt spent, got %q", got)
		}
	})
}

func TestAcceptTables(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown tables are named and cost validation attempts", func(t *testing.T) {
		env := newTestEnv()
		slots := map[string]string{"table": "Nope_PROD"}
		original := map[string]string{"table": "Nope_PROD"}

		resp := env.bot.Handle(ctx, accessEvent("Nope_PROD", slots, original, nil))
		if !strings.Contains(message(resp), "Nope_PROD") || !strings.Contains(message(resp), "(2 attempt left)") {
			t.Fatalf("expected validation failure naming the table, got %q", message(resp))
		}

		resp = env.bot.Handle(ctx, accessEvent("Nope_PROD", slots, original, resp.SessionAttributes))
		if !strings.Contains(message(resp), "(1 attempt left)") {
			t.Fatalf("expected second strike, got %q", message(resp))
		}

		resp = env.bot.Handle(ctx, accessEvent("Nope_PROD", slots, original, resp.SessionAttributes))
		if resp.DialogAction.Type != "Close" || !strings.Contains(message(resp), "attempt limit") {
			t.Errorf("expected attempt limit close, got %q", message(resp))
		}
	})

	t.Run("suffix match offers a response card", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("access to PROD",
			map[string]string{"table": "PROD"}, map[string]string{"table": "PROD"},
			map[string]string{"tableAttempts": "2"}))

		expected := "Which one of these tables?"
		if message(resp) != expected {
			t.Fatalf("expected: %q\nactual:%q", expected, message(resp))
		}
		card := resp.DialogAction.ResponseCard
		if card == nil || len(card.GenericAttachments) != 1 {
			t.Fatalf("expected a one-page response card, got %+v", card)
		}
		if got := len(card.GenericAttachments[0].Buttons); got != 2 {
			t.Errorf("expected 2 buttons, got %d", got)
		}
		title := card.GenericAttachments[0].Title
		if !strings.Contains(title, "PROD") {
			t.Errorf("expected title to name the token, got %q", title)
		}
		// A fresh pick restarts the entry counter.
		if got := resp.SessionAttributes["tableAttempts"]; got != "0" {
			t.Errorf("expected reset counter, got %q", got)
		}
	})

	t.Run("too many suffix matches asks to narrow down", func(t *testing.T) {
		env := newTestEnv()
		env.catalog.tables = []string{
			"A_PROD", "B_PROD", "C_PROD", "D_PROD", "E_PROD", "F_PROD",
		}
		resp := env.bot.Handle(ctx, accessEvent("access to PROD",
			map[string]string{"table": "PROD"}, map[string]string{"table": "PROD"}, nil))
		expected := "Too many options. Can you be more specific?"
		if message(resp) != expected {
			t.Errorf("expected: %q\nactual:%q", expected, message(resp))
		}
		if resp.DialogAction.ResponseCard != nil {
			t.Error("expected no response card")
		}
	})

	t.Run("blacklisted table reads as unknown", func(t *testing.T) {
		env := newTestEnv()
		env.blacklist.entries[BlacklistTable] = []string{"Users_PROD"}
		resp := env.bot.Handle(ctx, accessEvent("access to Users_PROD",
			map[string]string{"table": "Users_PROD"}, map[string]string{"table": "Users_PROD"}, nil))
		if !strings.Contains(message(resp), "do not exist or you do not have access") {
			t.Errorf("expected validation failure, got %q", message(resp))
		}
	})

	t.Run("valid table without duration asks about more tables", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("access to users_prod",
			map[string]string{"table": "users_prod"}, map[string]string{"table": "users_prod"}, nil))
		if resp.DialogAction.Type != "ConfirmIntent" {
			t.Fatalf("expected ConfirmIntent, got %q", resp.DialogAction.Type)
		}
		expected := "Would you like to request access to more tables? (Y/N)"
		if message(resp) != expected {
			t.Errorf("expected: %q\nactual:%q", expected, message(resp))
		}
		if got := resp.SessionAttributes["awaitingMore"]; got != "true" {
			t.Errorf("expected awaitingMore, got %q", got)
		}
		if got := resp.SessionAttributes["confirmedTables"]; got != "Users_PROD" {
			t.Errorf("expected catalog spelling confirmed, got %q", got)
		}
	})
}

func TestMoreTablesDecision(t *testing.T) {
	ctx := context.Background()
	pending := map[string]string{"awaitingMore": "true", "confirmedTables": "Users_PROD"}

	t.Run("yes elicits the next table", func(t *testing.T) {
		env := newTestEnv()
		event := accessEvent("yes", map[string]string{"table": "Users_PROD"}, nil, pending)
		event.CurrentIntent.ConfirmationStatus = lex.ConfirmationConfirmed
		resp := env.bot.Handle(ctx, event)

		if resp.DialogAction.Type != "ElicitSlot" || resp.DialogAction.SlotToElicit != "table" {
			t.Fatalf("expected table elicitation, got %+v", resp.DialogAction)
		}
		expected := "Enter the next table."
		if message(resp) != expected {
			t.Errorf("expected: %q\nactual:%q", expected, message(resp))
		}
		if got := resp.DialogAction.Slots["table"]; got != "" {
			t.Errorf("expected cleared table slot, got %q", got)
		}
		if got := resp.SessionAttributes["confirmedTables"]; got != "Users_PROD" {
			t.Errorf("expected confirmed tables kept, got %q", got)
		}
	})

	t.Run("no moves on to the expiry date", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("n", map[string]string{"table": "Users_PROD"}, nil, pending))
		expected := "Until when would you like access (YYYY-MM-DD)? (2 attempt left)"
		if message(resp) != expected {
			t.Errorf("expected: %q\nactual:%q", expected, message(resp))
		}
		if resp.DialogAction.SlotToElicit != "duration" {
			t.Errorf("expected duration elicitation, got %q", resp.DialogAction.SlotToElicit)
		}
	})

	t.Run("anything else re-asks", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("maybe", map[string]string{"table": "Users_PROD"}, nil, pending))
		if resp.DialogAction.Type != "ConfirmIntent" {
			t.Errorf("expected ConfirmIntent, got %q", resp.DialogAction.Type)
		}
	})
}

func TestCollectDate(t *testing.T) {
	ctx := context.Background()
	base := map[string]string{"confirmedTables": "Users_PROD"}

	event := func(duration string, attrs map[string]string) lex.Event {
		return accessEvent(duration,
			map[string]string{"table": "Users_PROD", "duration": duration},
			map[string]string{"table": "Users_PROD"}, attrs)
	}

	t.Run("unparseable date re-elicits", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, event("whenever suits", base))
		if !strings.Contains(message(resp), "couldn't understand") {
			t.Errorf("expected parse failure prompt, got %q", message(resp))
		}
		if resp.DialogAction.SlotToElicit != "duration" {
			t.Errorf("expected duration elicitation, got %q", resp.DialogAction.SlotToElicit)
		}
	})

	t.Run("past date re-elicits", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, event("2026-08-20", base))
		if !strings.Contains(message(resp), "in the past") {
			t.Errorf("expected past-date prompt, got %q", message(resp))
		}
	})

	t.Run("date beyond the window re-elicits", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, event("2026-09-10", base))
		if !strings.Contains(message(resp), "greater than 7 days") {
			t.Errorf("expected window prompt, got %q", message(resp))
		}
	})

	t.Run("third date failure ends the conversation", func(t *testing.T) {
		env := newTestEnv()
		attrs := map[string]string{"confirmedTables": "Users_PROD", "dateAttempts": "2"}
		resp := env.bot.Handle(ctx, event("whenever suits", attrs))
		if resp.DialogAction.Type != "Close" || !strings.Contains(message(resp), "attempt limit") {
			t.Errorf("expected attempt limit close, got %q", message(resp))
		}
	})
}

func TestFullConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.policies.ensured = EnsuredPolicy{Created: true}

	// Turn 1: bare request.
	resp := env.bot.Handle(ctx, accessEvent("request access to", map[string]string{"table": ""}, nil, nil))
	if message(resp) != "What table would you like access to?" {
		t.Fatalf("turn 1: got %q", message(resp))
	}

	// Turn 2: first table.
	resp = env.bot.Handle(ctx, accessEvent("users_prod",
		map[string]string{"table": "users_prod"}, map[string]string{"table": "users_prod"},
		resp.SessionAttributes))
	if resp.DialogAction.Type != "ConfirmIntent" {
		t.Fatalf("turn 2: expected ConfirmIntent, got %+v", resp.DialogAction)
	}

	// Turn 3: yes, another one.
	event := accessEvent("yes", map[string]string{"table": "users_prod"}, nil, resp.SessionAttributes)
	event.CurrentIntent.ConfirmationStatus = lex.ConfirmationConfirmed
	resp = env.bot.Handle(ctx, event)
	if message(resp) != "Enter the next table." {
		t.Fatalf("turn 3: got %q", message(resp))
	}

	// Turn 4: second table.
	resp = env.bot.Handle(ctx, accessEvent("Orders_PROD",
		map[string]string{"table": "Orders_PROD"}, map[string]string{"table": "Orders_PROD"},
		resp.SessionAttributes))
	if resp.DialogAction.Type != "ConfirmIntent" {
		t.Fatalf("turn 4: expected ConfirmIntent, got %+v", resp.DialogAction)
	}

	// Turn 5: no more tables, which moves on to the date.
	resp = env.bot.Handle(ctx, accessEvent("no",
		map[string]string{"table": "Orders_PROD"}, nil, resp.SessionAttributes))
	if resp.DialogAction.SlotToElicit != "duration" {
		t.Fatalf("turn 5: expected duration elicitation, got %+v", resp.DialogAction)
	}

	// Turn 6: the expiry date completes the grant.
	resp = env.bot.Handle(ctx, accessEvent("tomorrow",
		map[string]string{"table": "Orders_PROD", "duration": "tomorrow"},
		map[string]string{"table": "Orders_PROD"}, resp.SessionAttributes))
	if resp.DialogAction.Type != "Close" {
		t.Fatalf("turn 6: expected Close, got %+v", resp.DialogAction)
	}
	expected := "READ access has been granted to TeamA for the following tables until EOD 2026-08-29:\nUsers_PROD\nOrders_PROD"
	if message(resp) != expected {
		t.Errorf("expected: %q\nactual:%q", expected, message(resp))
	}

	if env.policies.ensuredName != "2026-08-29-TeamA" {
		t.Errorf("expected policy %q, got %q", "2026-08-29-TeamA", env.policies.ensuredName)
	}
	if len(env.policies.attachedTo) != 1 || env.policies.attachedTo[0] != "TeamA" {
		t.Errorf("expected attachment to TeamA, got %v", env.policies.attachedTo)
	}
	if len(env.notifier.posts) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(env.notifier.posts))
	}
	if env.notifier.posts[0].channel != "#teama" || env.notifier.posts[1].channel != "#audit" {
		t.Errorf("unexpected notification channels: %+v", env.notifier.posts)
	}
	if !strings.Contains(env.notifier.posts[0].pretext, "<@U1>") {
		t.Errorf("expected requester mention in pretext, got %q", env.notifier.posts[0].pretext)
	}
}

func TestCommaSeparatedRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.policies.ensured = EnsuredPolicy{Created: true}

	// Both tables in one utterance.
	resp := env.bot.Handle(ctx, accessEvent("access to users_prod, orders_prod",
		map[string]string{"table": "users_prod, orders_prod"},
		map[string]string{"table": "users_prod, orders_prod"}, nil))
	if resp.DialogAction.Type != "ConfirmIntent" {
		t.Fatalf("expected ConfirmIntent, got %+v", resp.DialogAction)
	}
	if got := resp.SessionAttributes["confirmedTables"]; got != "Users_PROD,Orders_PROD" {
		t.Fatalf("expected both tables confirmed, got %q", got)
	}

	// No more tables.
	resp = env.bot.Handle(ctx, accessEvent("n",
		map[string]string{"table": "users_prod, orders_prod"}, nil, resp.SessionAttributes))
	if resp.DialogAction.SlotToElicit != "duration" {
		t.Fatalf("expected duration elicitation, got %+v", resp.DialogAction)
	}

	// Access until EOD today.
	resp = env.bot.Handle(ctx, accessEvent("today",
		map[string]string{"table": "users_prod, orders_prod", "duration": "today"},
		map[string]string{"table": "users_prod, orders_prod"}, resp.SessionAttributes))
	if resp.DialogAction.Type != "Close" {
		t.Fatalf("expected Close, got %+v", resp.DialogAction)
	}
	msg := message(resp)
	if !strings.Contains(msg, "TeamA") || !strings.Contains(msg, "2026-08-28") {
		t.Errorf("expected group and today's date, got %q", msg)
	}
	if !strings.Contains(msg, "Users_PROD") || !strings.Contains(msg, "Orders_PROD") {
		t.Errorf("expected both tables, got %q", msg)
	}
}

func TestShowTableAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("lists active grants", func(t *testing.T) {
		env := newTestEnv()
		env.policies.grants = []ActiveGrant{
			{Expiry: "2026-08-29", Tables: []string{"Users_PROD"}},
			{Expiry: "2026-09-01", Tables: []string{"Orders_PROD", "Archive_PROD"}},
		}
		resp := env.bot.Handle(ctx, accessEvent("show table access", nil, nil, nil))
		msg := message(resp)
		if !strings.Contains(msg, "TeamA has access to the following table until EOD 2026-08-29:\nUsers_PROD") {
			t.Errorf("missing first grant in %q", msg)
		}
		if !strings.Contains(msg, "TeamA has access to the following tables until EOD 2026-09-01:\nOrders_PROD\nArchive_PROD") {
			t.Errorf("missing second grant in %q", msg)
		}
	})

	t.Run("no grants", func(t *testing.T) {
		env := newTestEnv()
		resp := env.bot.Handle(ctx, accessEvent("show table access", nil, nil, nil))
		if message(resp) != "No table access found!" {
			t.Errorf("got %q", message(resp))
		}
	})

	t.Run("non-team members are turned away", func(t *testing.T) {
		env := newTestEnv()
		event := accessEvent("show table access", nil, nil, nil)
		event.UserID = "slack:T123:U2"
		resp := env.bot.Handle(ctx, event)
		if message(resp) != "You are not part of a team!" {
			t.Errorf("got %q", message(resp))
		}
	})
}

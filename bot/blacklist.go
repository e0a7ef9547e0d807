package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/lex"
)

// handleBlacklist processes the blacklist commands. Only the configured
// admins may use them; everyone else is turned away before any parsing.
func (b *Bot) handleBlacklist(ctx context.Context, event lex.Event) lex.Response {
	user, err := b.member(ctx, event)
	if errors.Is(err, ErrNotFound) {
		return lex.Close("User not found.")
	}
	if err != nil {
		b.log.Error().Err(err).Msg("resolve requester")
		return b.failure()
	}
	if !containsFold(b.admins, user) {
		return lex.Close("You are not allowed to blacklist.")
	}

	// The raw transcript is parsed rather than the lowered form because
	// table names are case-sensitive.
	raw := strings.TrimSpace(event.InputTranscript)
	lower := strings.ToLower(raw)

	switch {
	case lower == "blacklist help":
		return lex.Close(blacklistHelp)
	case lower == "blacklist show":
		return b.showBlacklist(ctx, "")
	case lower == "blacklist show user":
		return b.showBlacklist(ctx, BlacklistUser)
	case lower == "blacklist show table":
		return b.showBlacklist(ctx, BlacklistTable)
	case strings.HasPrefix(lower, "blacklist remove user "):
		return b.blacklistUser(ctx, raw[len("blacklist remove user "):], true)
	case strings.HasPrefix(lower, "blacklist user "):
		return b.blacklistUser(ctx, raw[len("blacklist user "):], false)
	case strings.HasPrefix(lower, "blacklist remove table "):
		return b.blacklistTable(ctx, raw[len("blacklist remove table "):], true)
	case strings.HasPrefix(lower, "blacklist table "):
		return b.blacklistTable(ctx, raw[len("blacklist table "):], false)
	default:
		return lex.Close("Invalid request!")
	}
}

func (b *Bot) blacklistUser(ctx context.Context, mention string, remove bool) lex.Response {
	userID := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(mention), "<@"), ">")
	handle, err := b.directory.Member(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return lex.Close("User is not a member of this Slack workspace.")
	}
	if err != nil {
		b.log.Error().Err(err).Str("user", userID).Msg("resolve blacklist target")
		return b.failure()
	}

	if remove {
		removed, err := b.blacklist.Remove(ctx, BlacklistUser, handle)
		if err != nil {
			b.log.Error().Err(err).Msg("remove user from blacklist")
			return b.failure()
		}
		if !removed {
			return lex.Close("The user has not been blacklisted.")
		}
		return lex.Close(handle + " has been removed from the blacklist.")
	}

	added, err := b.blacklist.Add(ctx, BlacklistUser, handle)
	if err != nil {
		b.log.Error().Err(err).Msg("add user to blacklist")
		return b.failure()
	}
	if !added {
		return lex.Close("This user has already been blacklisted.")
	}
	return lex.Close(handle + " has been blacklisted.")
}

func (b *Bot) blacklistTable(ctx context.Context, table string, remove bool) lex.Response {
	table = strings.TrimSpace(table)

	tables, err := b.catalog.Tables(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("list catalog tables")
		return b.failure()
	}
	name := ""
	for _, t := range tables {
		if strings.EqualFold(t, table) {
			name = t
			break
		}
	}
	if name == "" {
		return lex.Close(table + " does not exist in DynamoDB.")
	}

	if remove {
		removed, err := b.blacklist.Remove(ctx, BlacklistTable, name)
		if err != nil {
			b.log.Error().Err(err).Msg("remove table from blacklist")
			return b.failure()
		}
		if !removed {
			return lex.Close("The table has not been blacklisted.")
		}
		return lex.Close(name + " has been removed from the blacklist.")
	}

	added, err := b.blacklist.Add(ctx, BlacklistTable, name)
	if err != nil {
		b.log.Error().Err(err).Msg("add table to blacklist")
		return b.failure()
	}
	if !added {
		return lex.Close("This table has already been blacklisted.")
	}
	return lex.Close(name + " has been blacklisted.")
}

// showBlacklist renders one or both blacklists. kind is BlacklistUser,
// BlacklistTable, or "" for both.
func (b *Bot) showBlacklist(ctx context.Context, kind string) lex.Response {
	section := func(kind, label string) (string, error) {
		entries, err := b.blacklist.List(ctx, kind)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return fmt.Sprintf("No %ss have been blacklisted.", label), nil
		}
		return fmt.Sprintf("The %ss currently blacklisted are:\n%s", label, strings.Join(entries, "\n")), nil
	}

	var parts []string
	if kind == "" || kind == BlacklistUser {
		msg, err := section(BlacklistUser, "user")
		if err != nil {
			b.log.Error().Err(err).Msg("show user blacklist")
			return b.failure()
		}
		parts = append(parts, msg)
	}
	if kind == "" || kind == BlacklistTable {
		msg, err := section(BlacklistTable, "table")
		if err != nil {
			b.log.Error().Err(err).Msg("show table blacklist")
			return b.failure()
		}
		parts = append(parts, msg)
	}
	return lex.Close(strings.Join(parts, "\n\n"))
}

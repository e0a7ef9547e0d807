package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/lex"
)

// handleDisplay answers "show table access": the dated policies currently
// attached to the requester's team, with the tables each one grants.
func (b *Bot) handleDisplay(ctx context.Context, event lex.Event) lex.Response {
	user, err := b.member(ctx, event)
	if errors.Is(err, ErrNotFound) {
		return lex.Close("User not found.")
	}
	if err != nil {
		b.log.Error().Err(err).Msg("resolve requester")
		return b.failure()
	}

	group, err := b.resolveGroup(ctx, user)
	if err != nil {
		b.log.Error().Err(err).Str("user", user).Msg("resolve group")
		return b.failure()
	}
	if !containsFold(b.teamGroups, group) {
		return lex.Close("You are not part of a team!")
	}

	grants, err := b.policies.ActiveGrants(ctx, group)
	if err != nil {
		b.log.Error().Err(err).Str("group", group).Msg("list active grants")
		return b.failure()
	}
	if len(grants) == 0 {
		return lex.Close("No table access found!")
	}

	var out strings.Builder
	for _, g := range grants {
		plural := ""
		if len(g.Tables) > 1 {
			plural = "s"
		}
		fmt.Fprintf(&out, "%s has access to the following table%s until EOD %s:\n%s\n\n",
			group, plural, g.Expiry, strings.Join(g.Tables, "\n"))
	}
	return lex.Close(strings.TrimSpace(out.String()))
}

package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/lex"
)

// grant is the terminal transition of the table-access dialogue: resolve the
// requester's group, materialize the access policy, and notify stakeholders.
func (b *Bot) grant(ctx context.Context, s session, event lex.Event, isoExpiry string) lex.Response {
	user, err := b.member(ctx, event)
	if errors.Is(err, ErrNotFound) {
		return lex.Close("User not found.")
	}
	if err != nil {
		b.log.Error().Err(err).Msg("resolve requester")
		return b.failure()
	}

	blacklistedUsers, err := b.blacklist.List(ctx, BlacklistUser)
	if err != nil {
		b.log.Error().Err(err).Msg("get user blacklist")
		return b.failure()
	}
	if containsFold(blacklistedUsers, user) {
		return lex.Close("You do not have permission to request access to these tables!")
	}

	tables := s.Confirmed
	if len(tables) == 0 {
		// The confirmed list survives the whole conversation, so an empty
		// one here means the session bag was lost in transit. The slot still
		// holds the last validated entry.
		tables = splitTables(event.Slot(slotTable))
	}

	group, err := b.resolveGroup(ctx, user)
	if err != nil {
		b.log.Error().Err(err).Str("user", user).Msg("resolve group")
		return b.failure()
	}

	if !containsFold(b.teamGroups, group) {
		return b.denyGrant(ctx, event, tables, group)
	}

	policyName := isoExpiry + "-" + group
	ensured, err := b.policies.Ensure(ctx, policyName, tables)
	if err != nil {
		b.log.Error().Err(err).Str("policy", policyName).Msg("ensure policy")
		return b.failure()
	}

	if ensured.Created {
		if err := b.policies.Attach(ctx, ensured.ARN, group); err != nil {
			b.log.Error().Err(err).Str("policy", policyName).Str("group", group).Msg("attach policy")
			return lex.Close("Policy could not be attached!")
		}
	}

	// The confirmation shows everything the policy now covers, newly
	// requested and previously granted alike.
	granted := tables
	for _, t := range ensured.Existing {
		granted = appendUnique(granted, t)
	}

	plural := ""
	if len(granted) > 1 {
		plural = "s"
	}
	pretext := fmt.Sprintf("READ access has been granted to %s for the following table%s until EOD %s (requested by <@%s>):",
		group, plural, isoExpiry, slackUserID(event.UserID))
	tableList := strings.Join(granted, "\n")

	if err := b.notifyGrant(ctx, group, pretext, tableList); err != nil {
		b.log.Error().Err(err).Msg("notify grant")
		return b.failure()
	}

	return lex.Close(fmt.Sprintf("READ access has been granted to %s for the following table%s until EOD %s:\n%s",
		group, plural, isoExpiry, tableList))
}

// resolveGroup picks the requester's recognized team group, or falls back to
// the bare user identity when they belong to none ("group of one").
func (b *Bot) resolveGroup(ctx context.Context, user string) (string, error) {
	groups, err := b.policies.Groups(ctx, user)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	for _, g := range groups {
		if containsFold(b.teamGroups, g) {
			return g, nil
		}
	}
	return user, nil
}

// denyGrant handles requesters outside the recognized teams: the policy
// document is still rendered and posted to the audit channels, but nothing
// is created or attached.
func (b *Bot) denyGrant(ctx context.Context, event lex.Event, tables []string, group string) lex.Response {
	doc, err := b.policies.Document(tables)
	if err != nil {
		b.log.Error().Err(err).Msg("render denied policy document")
		return b.failure()
	}

	pretext := fmt.Sprintf("Request was denied to <@%s>", slackUserID(event.UserID))
	for _, channel := range b.channels {
		if err := b.notifier.Post(ctx, channel, pretext, doc); err != nil {
			b.log.Error().Err(err).Str("channel", channel).Msg("post denial audit")
			return b.failure()
		}
	}

	b.log.Info().Str("group", group).Msg("grant denied: not a recognized team")
	return lex.Close(fmt.Sprintf("You are not a member of a development team. Please contact a member of %s to request access.", b.contact))
}

// notifyGrant posts the grant to the group's own channel and to every
// configured notification channel, skipping the group channel when they
// coincide so nobody is notified twice.
func (b *Bot) notifyGrant(ctx context.Context, group, pretext, tableList string) error {
	groupChannel := "#" + strings.ToLower(group)
	if err := b.notifier.Post(ctx, groupChannel, pretext, tableList); err != nil {
		return errors.Wrapf(err, "post to %s", groupChannel)
	}

	for _, channel := range b.channels {
		if strings.EqualFold(channel, groupChannel) {
			continue
		}
		if err := b.notifier.Post(ctx, channel, pretext, tableList); err != nil {
			return errors.Wrapf(err, "post to %s", channel)
		}
	}
	return nil
}

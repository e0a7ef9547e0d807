// Package workspace adapts the Slack workspace to the bot's Directory and
// Notifier contracts. IAM user names follow the local part of the member's
// work email, which is how a Slack identity maps onto an IAM one.
package workspace

import (
	"context"
	"strings"

	"github.com/nlopes/slack"
	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/bot"
)

const notificationColor = "#2eb886"

// Client wraps the Slack web API.
type Client struct {
	api *slack.Client
}

// New constructs a Client around an authenticated Slack API client.
func New(api *slack.Client) *Client {
	return &Client{api: api}
}

// WorkspaceID returns the Slack team id of the workspace the token belongs to.
func (c *Client) WorkspaceID(ctx context.Context) (string, error) {
	info, err := c.api.GetTeamInfoContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "get team info")
	}
	return info.ID, nil
}

// Member resolves a Slack user id to the IAM-facing handle, the lowercased
// local part of the member's email. Deleted accounts and bots read as absent.
func (c *Client) Member(ctx context.Context, userID string) (string, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "list workspace users")
	}
	for _, u := range users {
		if u.ID != userID || u.Deleted || u.IsBot {
			continue
		}
		email := u.Profile.Email
		if email == "" {
			return "", bot.ErrNotFound
		}
		local, _, _ := strings.Cut(email, "@")
		return strings.ToLower(local), nil
	}
	return "", bot.ErrNotFound
}

// Post sends an attachment-formatted notification to channel.
func (c *Client) Post(ctx context.Context, channel, pretext, text string) error {
	params := slack.PostMessageParameters{
		Attachments: []slack.Attachment{{
			Fallback: "Table Access",
			Color:    notificationColor,
			Pretext:  pretext,
			Text:     text,
		}},
	}
	_, _, err := c.api.PostMessageContext(ctx, channel, "", params)
	return errors.Wrapf(err, "post to %s", channel)
}

// Package bot implements the Scotty conversational core: the table-access
// dialogue, the blacklist commands, help, and the grant construction that
// turns a finished dialogue into an attached access policy.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scotty-bot/scotty/lex"
)

// Intent names as provisioned in the Lex bot.
const (
	IntentTableAccess = "Scotty_TableAccess"
	IntentBlacklist   = "Scotty_Blacklist"
	IntentHelp        = "Scotty_Help"
)

// Slot names used by the table-access intent.
const (
	slotTable    = "table"
	slotDuration = "duration"
)

// ErrNotFound is returned by collaborators when a lookup has no result and
// absence is an ordinary answer, not a fault.
var ErrNotFound = errors.New("not found")

// Directory resolves Lex user ids to workspace members.
type Directory interface {
	// WorkspaceID returns the id of the messaging workspace the bot lives in.
	WorkspaceID(ctx context.Context) (string, error)
	// Member returns the human handle for a workspace user id, or
	// ErrNotFound when the id does not belong to the workspace.
	Member(ctx context.Context, userID string) (string, error)
}

// Catalog enumerates the live table catalog.
type Catalog interface {
	Tables(ctx context.Context) ([]string, error)
}

// Blacklist kinds.
const (
	BlacklistUser  = "user"
	BlacklistTable = "table"
)

// BlacklistStore is the key/value blacklist over users and tables.
type BlacklistStore interface {
	List(ctx context.Context, kind string) ([]string, error)
	// Add records value; it reports false when value was already present.
	Add(ctx context.Context, kind, value string) (bool, error)
	// Remove deletes value; it reports false when value was not present.
	Remove(ctx context.Context, kind, value string) (bool, error)
}

// EnsuredPolicy describes the outcome of creating or amending a policy.
type EnsuredPolicy struct {
	ARN     string
	Created bool
	// Existing holds the table names the policy already granted before this
	// request, for the union shown in the confirmation message.
	Existing []string
}

// ActiveGrant is one dated policy currently attached to a group.
type ActiveGrant struct {
	Expiry string
	Tables []string
}

// PolicyStore materializes access policies in the identity store.
type PolicyStore interface {
	// Groups lists the IAM groups user belongs to.
	Groups(ctx context.Context, user string) ([]string, error)
	// Document renders the read-only policy document for tables, without
	// persisting anything. Used for denial audit payloads.
	Document(tables []string) (string, error)
	// Ensure creates the named policy granting tables, or merges tables into
	// the existing policy's resource list when the name is taken.
	Ensure(ctx context.Context, name string, tables []string) (EnsuredPolicy, error)
	// Attach attaches the policy to the group, falling back to a same-named
	// individual user when group attachment fails.
	Attach(ctx context.Context, policyARN, group string) error
	// ActiveGrants lists the dated policies currently attached to group.
	ActiveGrants(ctx context.Context, group string) ([]ActiveGrant, error)
}

// Notifier posts human-readable messages to messaging channels.
type Notifier interface {
	Post(ctx context.Context, channel, pretext, text string) error
}

// Bot handles one conversational turn per invocation. It keeps no state of
// its own between turns; everything it needs to remember rides in the Lex
// session attributes.
type Bot struct {
	directory Directory
	catalog   Catalog
	blacklist BlacklistStore
	policies  PolicyStore
	notifier  Notifier

	teamGroups []string
	channels   []string
	admins     []string
	contact    string

	log zerolog.Logger
	now func() time.Time
}

// Options carries the policy knobs for New.
type Options struct {
	// TeamGroups are the groups a grant may be attached to.
	TeamGroups []string
	// NotificationChannels always receive grant/denial notifications.
	NotificationChannels []string
	// BlacklistAdmins may edit the blacklist.
	BlacklistAdmins []string
	// Contact is the team named in terminal "contact ..." messages.
	Contact string
}

// New creates a Bot wired to its collaborators.
func New(d Directory, c Catalog, bl BlacklistStore, p PolicyStore, n Notifier, opts Options, log zerolog.Logger) *Bot {
	contact := opts.Contact
	if contact == "" {
		contact = "Team-SRE"
	}
	return &Bot{
		directory:  d,
		catalog:    c,
		blacklist:  bl,
		policies:   p,
		notifier:   n,
		teamGroups: opts.TeamGroups,
		channels:   opts.NotificationChannels,
		admins:     lowerAll(opts.BlacklistAdmins),
		contact:    contact,
		log:        log,
		now:        time.Now,
	}
}

// Handle advances the conversation by one turn. It never returns an error to
// the platform: collaborator failures become a terminal message and a log
// line, which is all a chat user can act on.
func (b *Bot) Handle(ctx context.Context, event lex.Event) lex.Response {
	transcript := strings.ToLower(strings.TrimSpace(event.InputTranscript))

	if transcript == "cancel" || transcript == "abort" {
		return lex.Close("You have cancelled the request to access DynamoDB.")
	}

	intent := ""
	if event.CurrentIntent != nil {
		intent = event.CurrentIntent.Name
	}

	b.log.Debug().
		Str("intent", intent).
		Str("transcript", transcript).
		Msg("handling turn")

	switch intent {
	case IntentTableAccess:
		return b.handleTableAccess(ctx, event)
	case IntentBlacklist:
		return b.handleBlacklist(ctx, event)
	case IntentHelp:
		return b.handleHelp(ctx, event)
	default:
		b.log.Warn().Str("intent", intent).Msg("unknown intent")
		return lex.Close("I couldn't understand your request!")
	}
}

// member resolves the Lex user id behind event to a workspace handle.
// Lex prefixes Slack user ids with the platform and workspace id; the
// workspace segment is unwrapped only when it matches our own workspace.
func (b *Bot) member(ctx context.Context, event lex.Event) (string, error) {
	userID := event.UserID
	if parts := strings.Split(userID, ":"); len(parts) == 3 {
		workspaceID, err := b.directory.WorkspaceID(ctx)
		if err != nil {
			return "", err
		}
		if parts[1] == workspaceID {
			userID = parts[2]
		}
	}
	return b.directory.Member(ctx, userID)
}

// slackUserID extracts the bare user id for <@id> mentions in notifications.
func slackUserID(lexUserID string) string {
	if parts := strings.Split(lexUserID, ":"); len(parts) == 3 {
		return parts[2]
	}
	return lexUserID
}

func (b *Bot) attemptLimitReached() lex.Response {
	return lex.Close(fmt.Sprintf("You have reached your attempt limit! Please try again or find a member of %s.", b.contact))
}

func (b *Bot) failure() lex.Response {
	return lex.Close(fmt.Sprintf("Something went wrong while handling your request. Please try again or contact %s.", b.contact))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

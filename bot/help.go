package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/lex"
)

const blacklistHelp = "Using the blacklist command, you can add or remove users or tables to/from the blacklist, or show the current blacklist." +
	"\n\n*_Blacklist Command_*" +
	"\n\tblacklist user <@slack user>" +
	"\n\tblacklist table <table name>" +
	"\n\tblacklist remove table <table name>" +
	"\n\tblacklist remove user <@slack user>" +
	"\n\tblacklist show or blacklist show user or blacklist show table"

func tableAccessHelp(contact string) string {
	return "*_Request Command_*" +
		"\n\tTo request access to tables use the following command:" +
		"\n\t\t*Request access to {table name(s)} until {YYYY-MM-DD}*" +
		"\n\t\t*Access to {table name(s)} {YYYY-MM-DD}*" +
		"\n\n*_Specifics_*" +
		"\n\t*_Table_*" +
		"\n\t\tMultiple tables can be requested by *using a comma separated list*; the *full table name* must be provided." +
		"\n\t\tTables can be requested by using the table suffix, but only one table can be requested at a time." +
		"\n\n\t*_Request Period_*" +
		"\n\t\tAccess is limited to a maximum of 7 days." +
		"\n\t\tDuration can be specified by day or date, eg:" +
		"\n\t\t\trequest access until EOD today by using today or 2019-01-01" +
		"\n\t\t\trequest access until EOD Wednesday by using Wednesday" +
		"\n\n*_Abort Command_*" +
		"\n\t*Cancel* to stop the current request." +
		"\n\n*_Examples_*:" +
		"\n\t*Request access to table 1, table 2, table 3 until tomorrow*" +
		"\n\t*Access to table 1, table 2, table 3 2019-01-01*" +
		"\n\n*_Display Table Access_*" +
		"\n\tDisplay the current table access and expiration date:" +
		"\n\t\tCommand: show table access" +
		"\n\nFor additional assistance please contact a member of *_" + contact + "_*"
}

// handleHelp serves the static help texts. The blacklist section is shown
// only to blacklist admins.
func (b *Bot) handleHelp(ctx context.Context, event lex.Event) lex.Response {
	user, err := b.member(ctx, event)
	if errors.Is(err, ErrNotFound) {
		return lex.Close("User not found.")
	}
	if err != nil {
		b.log.Error().Err(err).Msg("resolve requester")
		return b.failure()
	}
	admin := containsFold(b.admins, user)

	switch strings.ToLower(strings.TrimSpace(event.InputTranscript)) {
	case "help":
		return lex.Close(b.helpOverview(admin))
	case "help table access":
		return lex.Close(tableAccessHelp(b.contact))
	case "help blacklist":
		if !admin {
			return lex.Close(fmt.Sprintf("Only %s can access the blacklist.", b.contact))
		}
		return lex.Close(blacklistHelp)
	default:
		return lex.Close("I couldn't understand your request!")
	}
}

func (b *Bot) helpOverview(admin bool) string {
	var out strings.Builder
	out.WriteString("I can perform the following actions:\n")
	out.WriteString("\n\t*_Request Table Access_*")
	if admin {
		out.WriteString("\n\t*_Blacklist Users / Tables_*")
	}
	out.WriteString("\n\nYou can ask for help on specific commands:\n")
	out.WriteString("\n\thelp table access")
	if admin {
		out.WriteString("\n\thelp blacklist")
	}
	fmt.Fprintf(&out, "\n\nFor additional assistance please contact a member of *_%s_*", b.contact)
	return out.String()
}

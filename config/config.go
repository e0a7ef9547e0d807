// Package config loads the bot configuration from the environment.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Config carries everything the entrypoints need to wire the bot.
type Config struct {
	// SlackToken authenticates the workspace client used for member lookup
	// and notifications.
	SlackToken string `env:"SCOTTY_SLACK_TOKEN,required"`

	// StateTable is the DynamoDB table holding the blacklist rows.
	StateTable string `env:"SCOTTY_STATE_TABLE" envDefault:"Scotty"`

	// TeamGroups are the IAM groups access policies may be attached to.
	TeamGroups []string `env:"SCOTTY_TEAM_GROUPS" envSeparator:","`

	// NotificationChannels always receive a copy of grant and denial
	// notifications, in addition to the requesting team's own channel.
	NotificationChannels []string `env:"SCOTTY_NOTIFICATION_CHANNELS" envSeparator:","`

	// BlacklistAdmins are the Slack handles allowed to edit the blacklist.
	BlacklistAdmins []string `env:"SCOTTY_BLACKLIST_ADMINS" envSeparator:","`

	// Contact is the team named in "contact ..." style terminal messages.
	Contact string `env:"SCOTTY_CONTACT" envDefault:"Team-SRE"`

	// BotName is the Lex bot the slot sync job republishes.
	BotName string `env:"SCOTTY_BOT_NAME" envDefault:"Scotty"`

	// TableSlotType is the Lex slot type whose synonyms enumerate the table
	// catalog.
	TableSlotType string `env:"SCOTTY_TABLE_SLOT_TYPE" envDefault:"table"`

	// LocalAddr, when set, serves the fulfillment hook over HTTP instead of
	// the Lambda runtime. Development only.
	LocalAddr string `env:"SCOTTY_LOCAL_ADDR"`

	Debug bool `env:"SCOTTY_DEBUG"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Package lexmodel keeps the Lex bot's table slot type in step with the live
// DynamoDB catalog. It runs out of band, triggered by table lifecycle events,
// so the dialogue always recognizes tables that exist right now.
//
// The slot type holds a single enumeration value whose synonyms are the table
// names; with TOP_RESOLUTION the raw table name survives in the slot's
// originalValue, which is what the dialogue resolves against.
package lexmodel

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelbuildingservice"
	lextypes "github.com/aws/aws-sdk-go-v2/service/lexmodelbuildingservice/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	latestVersion = "$LATEST"

	// tableSlot is the slot the table slot type backs inside each intent.
	tableSlot = "table"

	readyPollInterval = 5 * time.Second
)

// Catalog enumerates the live table catalog.
type Catalog interface {
	Tables(ctx context.Context) ([]string, error)
}

// Syncer reconciles the slot type with the catalog and republishes the bot
// when the enumeration changed.
type Syncer struct {
	lex      *lexmodelbuildingservice.Client
	catalog  Catalog
	slotType string
	botName  string
	log      zerolog.Logger
}

// New constructs a Syncer for the named slot type and bot.
func New(client *lexmodelbuildingservice.Client, catalog Catalog, slotType, botName string, log zerolog.Logger) *Syncer {
	return &Syncer{lex: client, catalog: catalog, slotType: slotType, botName: botName, log: log}
}

// Sync reconciles the slot type synonyms with the catalog. When they differ it
// publishes a new slot type version, re-points every intent carrying the table
// slot at it, and rebuilds and publishes the bot. It reports whether anything
// changed.
func (s *Syncer) Sync(ctx context.Context) (bool, error) {
	tables, err := s.catalog.Tables(ctx)
	if err != nil {
		return false, errors.Wrap(err, "list catalog tables")
	}

	current, err := s.lex.GetSlotType(ctx, &lexmodelbuildingservice.GetSlotTypeInput{
		Name:    aws.String(s.slotType),
		Version: aws.String(latestVersion),
	})
	if err != nil {
		return false, errors.Wrapf(err, "get slot type %s", s.slotType)
	}

	if synonymsEqual(current.EnumerationValues, tables) {
		s.log.Debug().Str("slot_type", s.slotType).Msg("slot type already current")
		return false, nil
	}

	slotVersion, err := s.publishSlotType(ctx, current.Checksum, tables)
	if err != nil {
		return false, err
	}
	s.log.Info().
		Str("slot_type", s.slotType).
		Str("version", slotVersion).
		Int("tables", len(tables)).
		Msg("slot type updated")

	if err := s.republishBot(ctx, slotVersion); err != nil {
		return true, err
	}
	return true, nil
}

// publishSlotType writes the new synonym list to $LATEST and publishes it as a
// numbered version.
func (s *Syncer) publishSlotType(ctx context.Context, checksum *string, tables []string) (string, error) {
	_, err := s.lex.PutSlotType(ctx, &lexmodelbuildingservice.PutSlotTypeInput{
		Name:     aws.String(s.slotType),
		Checksum: checksum,
		EnumerationValues: []lextypes.EnumerationValue{{
			Value:    aws.String(tableSlot),
			Synonyms: tables,
		}},
		ValueSelectionStrategy: lextypes.SlotValueSelectionStrategyTopResolution,
	})
	if err != nil {
		return "", errors.Wrapf(err, "put slot type %s", s.slotType)
	}

	updated, err := s.lex.GetSlotType(ctx, &lexmodelbuildingservice.GetSlotTypeInput{
		Name:    aws.String(s.slotType),
		Version: aws.String(latestVersion),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get updated slot type %s", s.slotType)
	}
	version, err := s.lex.CreateSlotTypeVersion(ctx, &lexmodelbuildingservice.CreateSlotTypeVersionInput{
		Name:     aws.String(s.slotType),
		Checksum: updated.Checksum,
	})
	if err != nil {
		return "", errors.Wrapf(err, "publish slot type %s", s.slotType)
	}
	return aws.ToString(version.Version), nil
}

// republishBot points every intent carrying the table slot at slotVersion,
// publishes those intents, then rebuilds and publishes the bot.
func (s *Syncer) republishBot(ctx context.Context, slotVersion string) error {
	bot, err := s.lex.GetBot(ctx, &lexmodelbuildingservice.GetBotInput{
		Name:           aws.String(s.botName),
		VersionOrAlias: aws.String(latestVersion),
	})
	if err != nil {
		return errors.Wrapf(err, "get bot %s", s.botName)
	}

	intents := make([]lextypes.Intent, 0, len(bot.Intents))
	for _, ref := range bot.Intents {
		version, err := s.repointIntent(ctx, aws.ToString(ref.IntentName), slotVersion)
		if err != nil {
			return err
		}
		if version == "" {
			version = aws.ToString(ref.IntentVersion)
		}
		intents = append(intents, lextypes.Intent{
			IntentName:    ref.IntentName,
			IntentVersion: aws.String(version),
		})
	}

	checksum, err := s.rebuild(ctx, bot, intents)
	if err != nil {
		return err
	}
	_, err = s.lex.CreateBotVersion(ctx, &lexmodelbuildingservice.CreateBotVersionInput{
		Name:     aws.String(s.botName),
		Checksum: checksum,
	})
	if err != nil {
		return errors.Wrapf(err, "publish bot %s", s.botName)
	}
	s.log.Info().Str("bot", s.botName).Msg("bot republished")
	return nil
}

// repointIntent updates the intent's table slot to slotVersion and publishes a
// new intent version. Intents without a table slot report an empty version and
// are left untouched.
func (s *Syncer) repointIntent(ctx context.Context, name, slotVersion string) (string, error) {
	intent, err := s.lex.GetIntent(ctx, &lexmodelbuildingservice.GetIntentInput{
		Name:    aws.String(name),
		Version: aws.String(latestVersion),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get intent %s", name)
	}

	found := false
	for i := range intent.Slots {
		if aws.ToString(intent.Slots[i].Name) == tableSlot {
			intent.Slots[i].SlotTypeVersion = aws.String(slotVersion)
			found = true
		}
	}
	if !found {
		return "", nil
	}

	_, err = s.lex.PutIntent(ctx, &lexmodelbuildingservice.PutIntentInput{
		Name:                aws.String(name),
		Checksum:            intent.Checksum,
		Description:         intent.Description,
		Slots:               intent.Slots,
		SampleUtterances:    intent.SampleUtterances,
		ConfirmationPrompt:  intent.ConfirmationPrompt,
		RejectionStatement:  intent.RejectionStatement,
		DialogCodeHook:      intent.DialogCodeHook,
		FulfillmentActivity: intent.FulfillmentActivity,
	})
	if err != nil {
		return "", errors.Wrapf(err, "put intent %s", name)
	}

	updated, err := s.lex.GetIntent(ctx, &lexmodelbuildingservice.GetIntentInput{
		Name:    aws.String(name),
		Version: aws.String(latestVersion),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get updated intent %s", name)
	}
	version, err := s.lex.CreateIntentVersion(ctx, &lexmodelbuildingservice.CreateIntentVersionInput{
		Name:     aws.String(name),
		Checksum: updated.Checksum,
	})
	if err != nil {
		return "", errors.Wrapf(err, "publish intent %s", name)
	}
	return aws.ToString(version.Version), nil
}

// rebuild replays the bot definition with the new intent versions and BUILD,
// then waits for the build to finish. It returns the checksum of the built
// bot, which CreateBotVersion needs.
func (s *Syncer) rebuild(ctx context.Context, bot *lexmodelbuildingservice.GetBotOutput, intents []lextypes.Intent) (*string, error) {
	put, err := s.lex.PutBot(ctx, &lexmodelbuildingservice.PutBotInput{
		Name:                    aws.String(s.botName),
		Checksum:                bot.Checksum,
		ChildDirected:           bot.ChildDirected,
		Locale:                  bot.Locale,
		Intents:                 intents,
		AbortStatement:          bot.AbortStatement,
		ClarificationPrompt:     bot.ClarificationPrompt,
		Description:             bot.Description,
		IdleSessionTTLInSeconds: bot.IdleSessionTTLInSeconds,
		VoiceId:                 bot.VoiceId,
		ProcessBehavior:         lextypes.ProcessBehaviorBuild,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "rebuild bot %s", s.botName)
	}

	status, checksum := put.Status, put.Checksum
	for status != lextypes.StatusReady {
		if status == lextypes.StatusFailed {
			return nil, errors.Errorf("bot %s build failed", s.botName)
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for bot build")
		case <-time.After(readyPollInterval):
		}
		current, err := s.lex.GetBot(ctx, &lexmodelbuildingservice.GetBotInput{
			Name:           aws.String(s.botName),
			VersionOrAlias: aws.String(latestVersion),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "poll bot %s", s.botName)
		}
		status, checksum = current.Status, current.Checksum
	}
	return checksum, nil
}

// synonymsEqual compares the slot type's synonym set with the catalog as sets.
func synonymsEqual(values []lextypes.EnumerationValue, tables []string) bool {
	var synonyms []string
	if len(values) > 0 {
		synonyms = values[0].Synonyms
	}
	if len(synonyms) != len(tables) {
		return false
	}
	set := make(map[string]bool, len(synonyms))
	for _, s := range synonyms {
		set[s] = true
	}
	for _, t := range tables {
		if !set[t] {
			return false
		}
	}
	return true
}

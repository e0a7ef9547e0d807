// Command slotsync reconciles the Lex table slot type with the DynamoDB
// catalog. It is triggered by CloudTrail table lifecycle events so the bot
// recognizes new tables without a manual model update.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelbuildingservice"
	"github.com/rs/zerolog"

	"github.com/scotty-bot/scotty/catalog"
	"github.com/scotty-bot/scotty/config"
	"github.com/scotty-bot/scotty/lexmodel"
)

// tableEvent is the slice of a CloudTrail event the handler cares about.
type tableEvent struct {
	Detail struct {
		EventName string `json:"eventName"`
	} `json:"detail"`
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("app", "slotsync").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("load AWS configuration")
	}

	store := catalog.New(dynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	syncer := lexmodel.New(lexmodelbuildingservice.NewFromConfig(awsCfg), store, cfg.TableSlotType, cfg.BotName, log)

	lambda.Start(func(ctx context.Context, event tableEvent) error {
		name := event.Detail.EventName
		if name != "CreateTable" && name != "DeleteTable" {
			log.Debug().Str("event", name).Msg("ignoring event")
			return nil
		}
		changed, err := syncer.Sync(ctx)
		if err != nil {
			log.Error().Err(err).Msg("sync slot type")
			return err
		}
		log.Info().Bool("changed", changed).Str("event", name).Msg("sync complete")
		return nil
	})
}

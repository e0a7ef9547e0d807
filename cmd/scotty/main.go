// Command scotty runs the table-access bot as a Lex fulfillment hook, either
// on the Lambda runtime or, for development, as a plain HTTP server.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/gorilla/mux"
	"github.com/nlopes/slack"
	"github.com/rs/zerolog"

	"github.com/scotty-bot/scotty/bot"
	"github.com/scotty-bot/scotty/catalog"
	"github.com/scotty-bot/scotty/config"
	"github.com/scotty-bot/scotty/lex"
	"github.com/scotty-bot/scotty/policy"
	"github.com/scotty-bot/scotty/workspace"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("app", "scotty").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load AWS configuration")
	}

	store := catalog.New(dynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	policies := policy.New(iam.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg))
	ws := workspace.New(slack.New(cfg.SlackToken))

	b := bot.New(ws, store, store, policies, ws, bot.Options{
		TeamGroups:           cfg.TeamGroups,
		NotificationChannels: cfg.NotificationChannels,
		BlacklistAdmins:      cfg.BlacklistAdmins,
		Contact:              cfg.Contact,
	}, log)

	if cfg.LocalAddr != "" {
		serveLocal(cfg.LocalAddr, b, log)
		return
	}

	lambda.Start(func(ctx context.Context, event lex.Event) (lex.Response, error) {
		return b.Handle(ctx, event), nil
	})
}

// serveLocal exposes the fulfillment hook over HTTP so the dialogue can be
// exercised with curl instead of a provisioned Lex bot.
func serveLocal(addr string, b *bot.Bot, log zerolog.Logger) {
	r := mux.NewRouter()
	r.HandleFunc("/fulfillment", func(w http.ResponseWriter, req *http.Request) {
		var event lex.Event
		if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := b.Handle(req.Context(), event)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("write response")
		}
	}).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("serving fulfillment hook")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

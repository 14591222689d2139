package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"survey-response-service/internal/app"
	"survey-response-service/internal/config"
	"survey-response-service/internal/domain"
	"survey-response-service/internal/infra/memory"
	pgstore "survey-response-service/internal/infra/postgres"
	redisinfra "survey-response-service/internal/infra/redis"
	"survey-response-service/internal/notify"
	transport "survey-response-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the survey response server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.DefinitionLoader = memory.NewStaticDefinitionLoader(sampleDefinitions())
	if pool != nil {
		loader = pgstore.NewSurveyLoader(pool)
	}

	surveyTTL := config.TTLDuration(cfg.Survey.TTL, 10*time.Minute)
	var definitions app.DefinitionRepository
	if redisClient != nil {
		definitions = redisinfra.NewSurveyRepository(redisClient, loader, surveyTTL)
	} else {
		definitions = memory.NewSurveyRepository(loader, surveyTTL)
	}

	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var participants app.ParticipantStore
	var responses app.ResponseStore
	if cfg.Postgres.URL != "" {
		db, err := openBunDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		store := pgstore.NewResponseStore(db)
		participants, responses = store, store
	} else {
		store := memory.NewResponseStore()
		participants, responses = store, store
	}

	var notifier app.Notifier = notify.Noop{}
	if cfg.Notify.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.URL, log)
	}

	pipeline := app.NewPipeline(participants, responses, notifier, log)
	service := app.NewSurveyService(definitions, sessions, pipeline)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting survey response service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleDefinitions provides a minimal survey for the no-database demo mode.
func sampleDefinitions() map[string]domain.Definition {
	return map[string]domain.Definition{
		"survey-1": {
			Survey: domain.Survey{
				ID:       "survey-1",
				Title:    "Neighborhood pulse",
				StartsAt: time.Now().Add(-time.Hour),
				Active:   true,
				Policy: domain.ParticipantPolicy{
					domain.FieldName:  {Visible: true, Required: true},
					domain.FieldPhone: {Visible: true, Required: true},
					domain.FieldCity:  {Visible: true},
				},
			},
			Questions: []domain.Question{
				{
					ID:       "q1",
					SurveyID: "survey-1",
					Prompt:   "How would you rate city services?",
					Kind:     domain.KindStars,
					Required: true,
					Order:    1,
				},
				{
					ID:       "q2",
					SurveyID: "survey-1",
					Prompt:   "Which issues matter most to you?",
					Kind:     domain.KindPoll,
					Options: []domain.Option{
						{ID: "health", Label: "Health", Order: 1},
						{ID: "safety", Label: "Safety", Order: 2},
						{ID: "transit", Label: "Transit", Order: 3},
					},
					MultipleChoice: true,
					AllowComment:   true,
					Order:          2,
				},
			},
		},
	}
}

package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/config"
	"vocab-quiz-service/internal/domain"
	"vocab-quiz-service/internal/infra/memory"
	pgstore "vocab-quiz-service/internal/infra/postgres"
	redisinfra "vocab-quiz-service/internal/infra/redis"
	"vocab-quiz-service/internal/questions"
	transport "vocab-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var wordSource memory.WordSource = memory.NewStaticWordSource(sampleWords())
	if pool != nil {
		wordSource = pgstore.NewWordStore(pool)
	}

	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	var cachedSource questions.Source
	if redisClient != nil {
		cachedSource = redisinfra.NewPoolCache(redisClient, wordSource, poolTTL)
	} else {
		cachedSource = memory.NewPoolCache(wordSource, poolTTL)
	}
	provider := questions.NewGenerator(cachedSource, cfg.Quiz.OptionCount)

	var results app.ResultSubmitter = memory.NewResultStore()
	var statuses app.WordStatusService = memory.NewStatusRecorder()
	if pool != nil {
		results = pgstore.NewResultStore(pool)
		statuses = pgstore.NewWordStore(pool)
	}

	var registry app.SessionRegistry = memory.NewRegistry()
	if redisClient != nil {
		registry = redisinfra.NewRegistry(redisClient, redisTTL)
	}

	wsHandler := transport.NewWSHandler(provider, results, statuses, registry, cfg.Quiz.SecondsPerQuestion)

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
		log.Printf("starting vocab quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleWords provides a minimal demo pool; configure Postgres for real data.
func sampleWords() []domain.Word {
	return []domain.Word{
		{ID: "w1", Text: "ubiquitous", Meaning: "present everywhere", Synonyms: []string{"omnipresent", "pervasive"}, Antonyms: []string{"rare"}, Example: "Smartphones are ubiquitous these days.", Status: domain.StatusLearning},
		{ID: "w2", Text: "ephemeral", Meaning: "lasting a very short time", Synonyms: []string{"fleeting", "transient"}, Antonyms: []string{"permanent"}, Example: "The ephemeral beauty of cherry blossoms.", Status: domain.StatusLearning},
		{ID: "w3", Text: "candid", Meaning: "truthful and straightforward", Synonyms: []string{"frank", "honest"}, Antonyms: []string{"evasive"}, Example: "She gave a candid answer.", Status: domain.StatusReviewing},
		{ID: "w4", Text: "meticulous", Meaning: "showing great attention to detail", Synonyms: []string{"thorough", "careful"}, Antonyms: []string{"careless"}, Example: "He kept meticulous records.", Status: domain.StatusMastered},
		{ID: "w5", Text: "resilient", Meaning: "able to recover quickly", Synonyms: []string{"tough", "hardy"}, Antonyms: []string{"fragile"}, Example: "Children are often resilient.", Status: domain.StatusMastered},
		{ID: "w6", Text: "pragmatic", Meaning: "dealing with things sensibly", Synonyms: []string{"practical", "realistic"}, Antonyms: []string{"idealistic"}, Example: "A pragmatic approach to the problem.", Status: domain.StatusLearning},
	}
}

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/config"
	"kheelo-quiz-service/internal/domain"
	"kheelo-quiz-service/internal/infra/memory"
	"kheelo-quiz-service/internal/infra/postgres"
	"kheelo-quiz-service/internal/infra/rabbitmq"
	redisinfra "kheelo-quiz-service/internal/infra/redis"
	"kheelo-quiz-service/internal/logging"
	transport "kheelo-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store  app.Store
		loader memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		store = postgres.NewStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)
	} else {
		log.Warn("postgres url not configured, using in-memory store with sample data")
		mem := memory.NewStore()
		seedSampleData(mem)
		store = mem
		loader = mem
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	lockTTL := config.TTLDuration(cfg.Lock.TTL, 2*time.Minute)

	var (
		quizRepo app.QuizRepository
		sessions app.SessionRepository
		locker   app.Locker
	)
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL, log)
		locker = redisinfra.NewLocker(redisClient, lockTTL, log)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore()
		locker = memory.NewLocker()
	}

	var notifier app.WinnerNotifier
	if cfg.RabbitMQ.URL != "" {
		rmq, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		defer rmq.Close()
		notifier = rmq
	}

	timeLimit := config.TTLDuration(cfg.Quiz.DefaultTimeLimit, 10*time.Minute)
	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(transport.Services{
		Evaluation: app.NewEvaluationService(store, locker, log),
		Allocation: app.NewAllocationService(store, locker, notifier, log),
		Attempts:   app.NewAttemptService(store, quizRepo, sessions, timeLimit, log),
	}, cfg.Admin.JWTSecret, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.Any("error", err))
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

// seedSampleData gives the in-memory mode a playable quiz.
func seedSampleData(store *memory.Store) {
	store.AddQuiz(domain.Quiz{ID: "quiz-1", Title: "Cricket basics", TimeLimitSeconds: 120}, []domain.Question{
		{ID: "q1", Text: "How many players does a cricket team field?", Options: domain.Options{"9", "11", "13"}},
		{ID: "q2", Text: "How many balls are in an over?", Options: domain.Options{"6", "8"}},
		{ID: "q3", Text: "What is the maximum score from one ball without extras?", Options: domain.Options{"4", "6", "8"}},
	})
	store.AddUser(domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"})
	store.AddUser(domain.User{ID: "u2", Name: "Ravi", Email: "ravi@example.com"})
	store.AddUser(domain.User{ID: "u3", Name: "Meera", Email: "meera@example.com"})
}

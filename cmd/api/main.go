package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/yourusername/survival-quiz/internal/config"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	"github.com/yourusername/survival-quiz/internal/handler"
	"github.com/yourusername/survival-quiz/internal/middleware"
	"github.com/yourusername/survival-quiz/internal/repository/memory"
	pgRepo "github.com/yourusername/survival-quiz/internal/repository/postgres"
	redisRepo "github.com/yourusername/survival-quiz/internal/repository/redis"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
	ws "github.com/yourusername/survival-quiz/internal/websocket"
	"github.com/yourusername/survival-quiz/pkg/auth"
	"github.com/yourusername/survival-quiz/pkg/database"
)

// repositories - набор хранилищ выбранного драйвера
type repositories struct {
	gameStates   repository.GameStateRepository
	questions    repository.QuestionRepository
	players      repository.PlayerRepository
	answers      repository.AnswerRepository
	eliminations repository.EliminationRepository
	presence     repository.PresenceRepository
	cache        repository.BoardCacheRepository
}

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(gin.Mode()); err != nil {
		log.Printf("Invalid config: %v", err)
		os.Exit(1)
	}
	isProduction := gin.Mode() == gin.ReleaseMode

	// Redis нужен для кеша, присутствия, лимитов и шины. Без него все работает в памяти.
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Println("Successfully connected to Redis")
	}

	repos, err := buildRepositories(cfg, redisClient, !isProduction)
	if err != nil {
		log.Printf("Failed to initialize storage: %v", err)
		os.Exit(1)
	}

	// --- Шина событий между экземплярами ---
	pubSubProvider, natsConn, err := buildPubSub(cfg, redisClient)
	if err != nil {
		log.Printf("Failed to initialize event bus: %v", err)
		os.Exit(1)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	wsHub := ws.NewHub(ws.HubConfig{
		CleanupInterval:   time.Duration(cfg.WebSocket.CleanupIntervalSec) * time.Second,
		InactivityTimeout: time.Duration(cfg.WebSocket.InactivityTimeoutSec) * time.Second,
	})
	go wsHub.Run()

	fanout := ws.NewFanout(wsHub, pubSubProvider, cfg.Bus.ChannelPrefix)
	if err := fanout.Start(); err != nil {
		log.Printf("Failed to start event fanout: %v", err)
		os.Exit(1)
	}
	wsManager := ws.NewManager(wsHub)

	// --- Игровое ядро ---
	gameConfig := &gamecore.Config{
		AutoLockGrace:          time.Duration(cfg.Game.AutoLockGraceMs) * time.Millisecond,
		DefaultTimeLimitSec:    cfg.Game.DefaultTimeLimitSec,
		PresenceTTL:            time.Duration(cfg.Game.PresenceTTLSec) * time.Second,
		RankingPageSize:        cfg.Game.RankingPageSize,
		StateBroadcastInterval: time.Duration(cfg.Game.StateBroadcastIntervalSec) * time.Second,
		CommandBuffer:          cfg.Game.CommandBuffer,
	}
	clock := clockwork.NewRealClock()

	controller := service.NewGameController(&gamecore.Dependencies{
		GameStateRepo:   repos.gameStates,
		QuestionRepo:    repos.questions,
		PlayerRepo:      repos.players,
		AnswerRepo:      repos.answers,
		EliminationRepo: repos.eliminations,
		Publisher:       fanout,
		Clock:           clock,
		Config:          gameConfig,
	})

	// --- Билеты и ключ оператора ---
	ticketSecret := cfg.Auth.TicketSecret
	if ticketSecret == "" {
		ticketSecret = randomSecret()
		log.Println("ВНИМАНИЕ: AUTH_TICKET_SECRET не задан, используется случайный секрет. Билеты не переживут перезапуск.")
	}
	tickets, err := auth.NewTicketService(ticketSecret, cfg.Auth.TicketTTL())
	if err != nil {
		log.Printf("Failed to initialize TicketService: %v", err)
		os.Exit(1)
	}
	adminKey, err := auth.NewAdminKeyChecker(cfg.Auth.AdminKeyHash)
	if err != nil {
		log.Printf("Failed to initialize admin key: %v", err)
		os.Exit(1)
	}
	if !adminKey.Enabled() {
		log.Println("ВНИМАНИЕ: AUTH_ADMIN_KEY_HASH не задан, админ-поверхность открыта")
	}

	// --- Сервисы ---
	var mailer service.Mailer
	if cfg.Report.ResendAPIKey != "" {
		resendMailer, errMailer := service.NewResendMailer(cfg.Report.ResendAPIKey, cfg.Report.From)
		if errMailer != nil {
			log.Printf("Failed to initialize mailer: %v", errMailer)
			os.Exit(1)
		}
		mailer = resendMailer
	}

	playerService := service.NewPlayerService(repos.players, repos.answers, controller, fanout)
	boardService := service.NewBoardService(controller, repos.answers, repos.players, repos.presence, repos.cache, gameConfig)
	questionService := service.NewQuestionService(repos.questions, controller, fanout, gameConfig)
	reportService := service.NewReportService(repos.players, mailer, cfg.Report.Recipients)
	presenceService := service.NewPresenceService(repos.presence, fanout, clock, gameConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Смена состояния на другом экземпляре: перечитываем строку и перевзводим таймер
	fanout.OnRemote(gamecore.TopicGameState, controller.RequestResync)
	if err := controller.Start(ctx); err != nil {
		log.Printf("Failed to start game controller: %v", err)
		os.Exit(1)
	}
	go presenceService.Run(ctx)

	// --- Обработчики ---
	clientConfig := ws.ClientConfig{
		BufferSize:     cfg.WebSocket.ClientSendBuffer,
		PingInterval:   time.Duration(cfg.WebSocket.PingIntervalSec) * time.Second,
		PongWait:       time.Duration(cfg.WebSocket.PongWaitSec) * time.Second,
		MaxMessageSize: int64(cfg.WebSocket.MaxMessageSize),
	}
	handlers := handler.Handlers{
		Admin:    handler.NewAdminHandler(controller, reportService, tickets, adminKey),
		Player:   handler.NewPlayerHandler(playerService, controller, tickets),
		Screen:   handler.NewScreenHandler(controller, boardService, presenceService, tickets),
		Question: handler.NewQuestionHandler(questionService),
		WS:       handler.NewWSHandler(wsManager, controller, presenceService, tickets, cfg.Server.AllowedOrigins, clientConfig),
	}

	authMiddleware := middleware.NewAuthMiddleware(tickets, adminKey)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()

	// В production не доверяем прокси-заголовкам. За балансировщиком добавьте его адрес.
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.RegisterRoutes(router, handlers, authMiddleware, rateLimiter)

	// Служебные эндпоинты экземпляра
	ops := handler.NewOpsHandler(wsHub, controller, cfg.Bus.Driver)
	router.GET("/ws/metrics", authMiddleware.RequireAdmin(), ops.Metrics)
	router.GET("/ws/health", ops.Health)

	// Тайм-ауты защищают от медленных клиентов
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Ядро останавливается раньше шины, чтобы последние события успели уйти
	cancel()
	controller.Shutdown()
	fanout.Stop() // закрывает и провайдер шины
	wsHub.Close()

	log.Println("Server exited properly")
}

// buildRepositories выбирает хранилище по database.driver
func buildRepositories(cfg *config.Config, redisClient redis.UniversalClient, debug bool) (*repositories, error) {
	repos := &repositories{}

	switch cfg.Database.Driver {
	case "memory":
		log.Println("ВНИМАНИЕ: используется хранилище в памяти, данные не переживут перезапуск")
		store := memory.NewStore()
		repos.gameStates = store.GameStates
		repos.questions = store.Questions
		repos.players = store.Players
		repos.answers = store.Answers
		repos.eliminations = store.Eliminations
		repos.presence = store.Presence
	default:
		db, err := database.NewPostgresDB(cfg.Database, debug)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
			return nil, err
		}
		repos.gameStates = pgRepo.NewGameStateRepo(db)
		repos.questions = pgRepo.NewQuestionRepo(db)
		repos.players = pgRepo.NewPlayerRepo(db)
		repos.answers = pgRepo.NewAnswerRepo(db)
		repos.eliminations = pgRepo.NewEliminationRepo(db)
		repos.presence = memory.NewStore().Presence
	}

	// Присутствие и кеш общие для экземпляров только через Redis
	if redisClient != nil {
		presenceRepo, err := redisRepo.NewPresenceRepo(redisClient, cfg.Bus.ChannelPrefix+"presence")
		if err != nil {
			return nil, err
		}
		cacheRepo, err := redisRepo.NewBoardCacheRepo(redisClient, cfg.Bus.ChannelPrefix)
		if err != nil {
			return nil, err
		}
		repos.presence = presenceRepo
		repos.cache = cacheRepo
	}
	return repos, nil
}

// buildPubSub создает провайдер шины по bus.driver
func buildPubSub(cfg *config.Config, redisClient redis.UniversalClient) (ws.PubSubProvider, *nats.Conn, error) {
	switch cfg.Bus.Driver {
	case config.BusDriverRedis:
		if redisClient == nil {
			return nil, nil, errors.New("bus driver redis requires redis configuration")
		}
		provider, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Шина событий: Redis Pub/Sub")
		return provider, nil, nil
	case config.BusDriverNATS:
		nc, err := database.NewNATSConnection(cfg.NATS, "survival-quiz-api")
		if err != nil {
			return nil, nil, err
		}
		provider, err := ws.NewNATSPubSub(nc, cfg.NATS.SubjectPrefix)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		log.Println("Шина событий: NATS")
		return provider, nc, nil
	default:
		log.Println("Шина событий выключена, работает один экземпляр")
		return &ws.NoOpPubSub{}, nil, nil
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

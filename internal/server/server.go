package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/coursechat/internal/cache"
	"github.com/thereayou/coursechat/internal/config"
	"github.com/thereayou/coursechat/internal/database"
	"github.com/thereayou/coursechat/internal/handlers"
	"github.com/thereayou/coursechat/internal/middleware"
	"github.com/thereayou/coursechat/internal/websocket"
	"github.com/thereayou/coursechat/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *websocket.Hub
	JWTManager *auth.JWTManager

	httpServer *http.Server
}

// Options - собранные зависимости; NewServer строит их из конфига, тесты подставляют свои
type Options struct {
	DB          *database.Database
	Blacklist   middleware.Blacklist
	JWTManager  *auth.JWTManager
	Transcriber handlers.Transcriber

	// AllowedOrigins - origin браузеров, которым можно открыть /ws
	AllowedOrigins []string
}

// NewServer подключается к БД и Redis по конфигу
func NewServer(cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		dbConn.Close()
		return nil, err
	}
	rdb := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		dbConn.Close()
		rdb.Close()
		return nil, err
	}

	var transcriber handlers.Transcriber
	if cfg.TranscribeURL != "" {
		transcriber = handlers.NewHTTPTranscriber(cfg.TranscribeURL)
	}

	s := New(Options{
		DB:          dbConn,
		Blacklist:   cache.NewTokenBlacklist(rdb),
		JWTManager:  auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Transcriber: transcriber,

		AllowedOrigins: cfg.AllowedOrigins,
	})
	s.Redis = rdb
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// New собирает hub, handlers и router без сетевых подключений
func New(opts Options) *Server {
	hub := websocket.NewHub()

	messageH := handlers.NewMessageHandler(opts.DB, hub)
	h := Handlers{
		Auth:           handlers.NewAuthHandler(opts.DB, opts.JWTManager, opts.Blacklist),
		Course:         handlers.NewCourseHandler(opts.DB, opts.Transcriber),
		Message:        messageH,
		Notification:   handlers.NewNotificationHandler(opts.DB),
		WebSocket:      handlers.NewWebSocketHandler(hub, messageH, opts.AllowedOrigins),
		Authenticate:   middleware.AuthMiddleware(opts.JWTManager, opts.Blacklist),
		WSAuthenticate: middleware.WSAuthMiddleware(opts.JWTManager, opts.Blacklist),
	}

	router := gin.Default()
	APIEndpoints(router, h)

	return &Server{
		Router:     router,
		DB:         opts.DB,
		Hub:        hub,
		JWTManager: opts.JWTManager,
	}
}

// Run запускает hub и HTTP сервер; блокируется до Shutdown
func (s *Server) Run() error {
	go s.Hub.Run()

	log.Printf("Server starting on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает приём запросов, закрывает websocket-ы, затем хранилища
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.Hub.Stop()

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// WaitForShutdown ждёт SIGINT/SIGTERM и возвращает код выхода
func (s *Server) WaitForShutdown(timeout time.Duration) int {
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		timeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return s.Shutdown(ctx)
			},
		},
	)
	return <-wait
}

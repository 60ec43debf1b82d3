package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"kazini/internal/ai"
	"kazini/internal/config"
	"kazini/internal/handler"
	chatHandler "kazini/internal/handler/chat"
	"kazini/internal/pkg/cache"
	"kazini/internal/pkg/jwt"
	"kazini/internal/pkg/mongodb"
	"kazini/internal/pkg/sqldb"
	chatRepo "kazini/internal/repository/chat"
	"kazini/internal/server/middleware"
	chatService "kazini/internal/service/chat"
)

const defaultJWTSecret = "default-secret-key-change-in-production"

// Server HTTP 服务器
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	mongo   *mongodb.Client
	sqlDB   *gorm.DB
	redis   *cache.RedisCache
	session *chatService.SessionService
	deps    map[string]handler.Pinger
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
		deps:   make(map[string]handler.Pinger),
	}

	// 会话存储（必需）
	store, assessments, err := srv.openStore()
	if err != nil {
		srv.closeResources()
		return nil, err
	}

	// 计数器：Redis 不可用时退化为进程内计数
	var counter cache.Counter = cache.NewMemoryCounter()
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, using in-process usage counter")
		} else {
			srv.redis = rc
			srv.deps["redis"] = rc
			counter = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// 生成服务：初始化失败时所有回复走兜底
	generator, err := ai.NewClient(context.Background(), &cfg.AI, cfg.Chat.GenerationTimeout)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.AI.Provider).Msg("failed to initialize chat model, replies will use fallback")
		generator = ai.NewUnavailableClient()
	} else {
		log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized chat model")
	}

	srv.session = chatService.NewSessionService(
		store,
		generator,
		chatService.NewRateLimiter(counter, cfg.Chat.CounterTTL),
		chatService.NewContextBuilder(assessments),
		cfg.Chat,
	)

	srv.setupRoutes()

	return srv, nil
}

// openStore 按 store.driver 创建会话存储与测评读取器
func (s *Server) openStore() (chatService.Store, chatService.AssessmentReader, error) {
	switch s.cfg.Store.Driver {
	case "mongo":
		client, err := mongodb.New(&s.cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		s.mongo = client
		s.deps["mongo"] = client
		log.Info().Str("database", s.cfg.Mongo.Database).Msg("connected to MongoDB")

		// 创建索引
		if err := mongodb.EnsureIndexes(context.Background(), client.Database()); err != nil {
			log.Warn().Err(err).Msg("failed to ensure indexes")
		}
		return chatRepo.NewMongoStore(client.Database()), chatRepo.NewAssessmentRepo(client.Database()), nil

	case "postgres", "sqlite":
		db, err := sqldb.Open(&s.cfg.Store)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s store: %w", s.cfg.Store.Driver, err)
		}
		s.sqlDB = db
		s.deps[s.cfg.Store.Driver] = pingFunc(func(ctx context.Context) error { return sqldb.Ping(ctx, db) })

		store := chatRepo.NewSQLStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate %s store: %w", s.cfg.Store.Driver, err)
		}
		log.Info().Str("driver", s.cfg.Store.Driver).Msg("opened SQL store")
		return store, store, nil

	case "memory":
		log.Warn().Msg("using in-memory store, conversations are lost on restart")
		store := chatRepo.NewMemoryStore()
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", s.cfg.Store.Driver)
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler(s.deps)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Prometheus 指标
	if s.cfg.Metrics.Enabled {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = defaultJWTSecret
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}
	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}
	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// 导师对话接口（需要认证）
	api := s.engine.Group("/api")
	api.Use(middleware.Auth(jwtUtil))
	{
		chatHdl := chatHandler.NewHandler(s.session)

		chatbot := api.Group("/chatbot")
		chatbot.POST("/", chatHdl.SendMessage)
		chatbot.GET("/history/", chatHdl.ListConversations)
		chatbot.GET("/conversations/:conversation_id/messages/", chatHdl.ListMessages)
		chatbot.POST("/conversations/:conversation_id/messages/:message_id/feedback/", chatHdl.Feedback)
		chatbot.DELETE("/conversations/:conversation_id/", chatHdl.DeleteConversation)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.closeResources()
		return err
	case err := <-errCh:
		s.closeResources()
		return err
	}
}

// closeResources 关闭外部连接
func (s *Server) closeResources() {
	if s.mongo != nil {
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
	}
	if s.sqlDB != nil {
		if err := sqldb.Close(s.sqlDB); err != nil {
			log.Error().Err(err).Msg("failed to close SQL connection")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

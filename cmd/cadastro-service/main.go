package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/api"
	"github.com/hypernova-labs/cadastro-service/internal/config"
	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/realtime"
	"github.com/hypernova-labs/cadastro-service/internal/security"
	"github.com/hypernova-labs/cadastro-service/internal/services"
	"github.com/hypernova-labs/cadastro-service/internal/storage"
	"github.com/hypernova-labs/cadastro-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting Cadastro Service...")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Banco principal + migrações
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(logger); err != nil {
		logger.Fatalf("Error running migrations: %v", err)
	}

	// Redis (cache de revogação + ponte realtime); opcional
	redis, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Warnf("Error connecting to Redis: %v", err)
		redis = nil
	} else {
		defer redis.Close()
	}

	// Catálogo TOTVS (somente leitura); opcional
	var totvsRepo *database.TotvsProductRepository
	if cfg.Totvs.Enabled() {
		totvsDB, err := database.ConnectTotvs(cfg)
		if err != nil {
			logger.Warnf("Error connecting to TOTVS database: %v", err)
		} else {
			defer totvsDB.Close()
			totvsRepo = database.NewTotvsProductRepository(totvsDB, logger)
			logger.Info("TOTVS catalog connection healthy")
		}
	} else {
		logger.Warn("TOTVS credentials not provided, catalog integration will not be available")
	}

	// Repositórios
	userRepo := database.NewUserRepository(db, logger)
	convRepo := database.NewConversationRepository(db, logger)
	msgRepo := database.NewMessageRepository(db, logger)
	requestRepo := database.NewRequestRepository(db, logger)
	itemRepo := database.NewRequestItemRepository(db, logger)
	fieldRepo := database.NewRequestItemFieldRepository(db, logger)
	productRepo := database.NewProductRepository(db, logger)
	auditRepo := database.NewAuditRepository(db, logger)
	tokenRepo := database.NewTokenRepository(db, logger)

	// Inngest (pipeline assíncrono); opcional
	var workflowEmitter services.WorkflowEmitter
	inngestClient, err := workflows.NewInngestClient(cfg, logger)
	if err != nil {
		logger.Warnf("Inngest credentials not provided, workflow events will not be available: %v", err)
	} else {
		workflowEmitter = inngestClient
	}

	// Realtime
	hub := realtime.NewHub(logger)
	notifier := realtime.NewHubNotifier(hub, redis, logger)

	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	if redis != nil {
		go notifier.RunBridge(bridgeCtx)
	}

	// Serviços
	jwtProvider := security.NewJwtProvider(cfg.JWT)
	auditService := services.NewAuditService(auditRepo, logger)

	var revocationCache services.RevocationCache
	if redis != nil {
		revocationCache = redis
	}
	authService := services.NewAuthService(userRepo, tokenRepo, jwtProvider, revocationCache, auditService, logger)
	userService := services.NewUserService(userRepo, auditService, logger)

	var catalog services.TotvsCatalog
	if totvsRepo != nil {
		catalog = totvsRepo
	}
	productService := services.NewProductService(productRepo, catalog, totvsRepo != nil, logger)
	productQuery := services.NewProductQueryService(productRepo, catalog, logger)

	requestService := services.NewRequestService(
		db, requestRepo, itemRepo, fieldRepo, msgRepo, convRepo,
		productService, auditService, notifier, workflowEmitter, logger,
	)
	convService := services.NewConversationService(convRepo, userRepo, auditService, notifier, logger)
	messageService := services.NewMessageService(db, msgRepo, convRepo, requestRepo, requestService, notifier, logger)

	fileStorage, err := storage.NewLocalFileStorage(cfg.Upload, logger)
	if err != nil {
		logger.Fatalf("Error initializing file storage: %v", err)
	}
	fileService := services.NewFileService(fileStorage, msgRepo, convRepo, auditService, logger)

	apiHandler := api.NewAPI(
		authService, userService, convService, messageService,
		requestService, productQuery, fileService, auditService,
		jwtProvider, hub, logger,
	)

	router := setupRouter(apiHandler, db, redis, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger configura o logger conforme a configuração
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// setupRouter configura o router principal
func setupRouter(apiHandler *api.API, db *database.DB, redis *database.Redis, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS liberado em desenvolvimento
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := db.HealthCheck(); err != nil {
			status = "degraded"
		}
		redisStatus := "disabled"
		if redis != nil {
			redisStatus = "ok"
			if err := redis.HealthCheck(); err != nil {
				redisStatus = "degraded"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC(),
			"service":   "cadastro-service",
			"version":   "1.0.0",
		})
	})

	v1 := router.Group("/v1")
	{
		// Autenticação (pública)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", apiHandler.Login)
			auth.POST("/refresh", apiHandler.Refresh)
		}

		// Websocket (token na query)
		v1.GET("/ws", apiHandler.ServeWebsocket)

		// Rotas autenticadas
		private := v1.Group("")
		private.Use(apiHandler.AuthMiddleware())
		{
			private.POST("/auth/logout", apiHandler.Logout)
			private.GET("/auth/me", apiHandler.Me)

			// Usuários
			private.POST("/users", apiHandler.CreateUser)
			private.GET("/users", apiHandler.ListUsers)
			private.GET("/users/:id", apiHandler.GetUser)
			private.PATCH("/users/:id", apiHandler.UpdateUser)
			private.DELETE("/users/:id", apiHandler.DeleteUser)

			// Conversas e mensagens
			private.POST("/conversations", apiHandler.CreateConversation)
			private.GET("/conversations", apiHandler.ListConversations)
			private.GET("/conversations/:id", apiHandler.GetConversation)
			private.PATCH("/conversations/:id", apiHandler.UpdateConversation)
			private.DELETE("/conversations/:id", apiHandler.DeleteConversation)
			private.POST("/conversations/:id/messages", apiHandler.CreateMessage)
			private.GET("/conversations/:id/messages", apiHandler.ListMessages)
			private.POST("/conversations/:id/read", apiHandler.MarkMessagesRead)

			// Anexos
			private.POST("/files", apiHandler.UploadFile)
			private.GET("/files/:id", apiHandler.DownloadFile)

			// Requisições de cadastro
			private.POST("/requests", apiHandler.CreateRequest)
			private.GET("/requests/:id", apiHandler.GetRequest)
			private.DELETE("/requests/:id", apiHandler.DeleteRequest)
			private.POST("/requests/:id/items", apiHandler.AddRequestItem)
			private.GET("/messages/:id/request", apiHandler.GetRequestByMessage)
			private.DELETE("/messages/:id", apiHandler.DeleteMessage)

			private.GET("/request-items", apiHandler.ListRequestItems)
			private.PATCH("/request-items/:id", apiHandler.UpdateRequestItem)
			private.DELETE("/request-items/:id", apiHandler.DeleteRequestItem)
			private.POST("/request-items/:id/fields", apiHandler.AddRequestItemField)
			private.POST("/request-items/:id/status", apiHandler.ChangeRequestItemStatus)
			private.POST("/request-items/:id/resubmit", apiHandler.ResubmitRequestItem)

			private.PATCH("/request-item-fields/:id", apiHandler.UpdateRequestItemField)
			private.POST("/request-item-fields/:id/flag", apiHandler.SetRequestItemFieldFlag)
			private.DELETE("/request-item-fields/:id", apiHandler.DeleteRequestItemField)

			// Produtos materializados + catálogo TOTVS
			private.GET("/products", apiHandler.ListProducts)
			private.GET("/products/:id", apiHandler.GetProduct)
			private.GET("/totvs/products", apiHandler.SearchTotvsProducts)
			private.GET("/totvs/products/:code", apiHandler.GetTotvsProduct)

			// Auditoria (só revisores)
			audit := private.Group("/audit")
			audit.Use(apiHandler.RequireReviewer())
			{
				audit.GET("", apiHandler.ListAuditLogs)
			}
		}
	}

	return router
}

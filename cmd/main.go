package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mica-backend/internal/config"
	"mica-backend/internal/dataset"
	"mica-backend/internal/handler"
	"mica-backend/internal/model"
	"mica-backend/internal/service"
	"mica-backend/internal/storage"
	"mica-backend/internal/websearch"
	"mica-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 市场数据集：CSV 导入内存 sqlite
	store, err := dataset.NewStore()
	if err != nil {
		logger.Fatalf("Failed to open dataset store: %v", err)
	}
	defer store.Close()

	if err := store.LoadAll(cfg.Dataset.DataDir); err != nil {
		logger.Fatalf("Failed to load market datasets: %v", err)
	}

	// 文档语料
	docs := dataset.NewDocumentCorpus()
	if err := docs.Load(cfg.Dataset.DataDir, cfg.Dataset.DocRegions); err != nil {
		logger.Fatalf("Failed to load document corpus: %v", err)
	}

	// 对话模型
	chatModel, err := model.NewChatModel(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	// 服务装配
	retriever := service.NewContextBuilder(store, cfg.Chat.ContextSearchLimit)
	completion := service.NewCompletionClient(chatModel, retriever)
	demuxer := service.NewStreamDemuxer(cfg.Chat.StreamDelay)

	questionStore := storage.NewMemoryQuestionStore()
	chatService := service.NewChatService(questionStore, completion, demuxer, cfg.Store.TTL, cfg.Store.CleanupInterval)
	defer chatService.Close()

	searcher := websearch.NewSearcher(cfg.WebSearch.Timeout, cfg.WebSearch.MaxResults, cfg.WebSearch.UserAgent)

	chatHandler := handler.NewChatHandler(chatService)
	dataHandler := handler.NewDataHandler(store, docs, searcher, completion)

	router := setupRouter(cfg, chatHandler, dataHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	if err := server.Close(); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, dataHandler *handler.DataHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", chatHandler.Health)

	api := router.Group("/api")
	{
		api.POST("/question", chatHandler.SubmitQuestion)
		api.POST("/answer", chatHandler.GetAnswer)
		api.POST("/answer/stream", chatHandler.StreamAnswer)
		api.POST("/web-search", dataHandler.WebSearchPost)

		data := api.Group("/data")
		{
			data.GET("/summary", dataHandler.Summary)
			data.GET("/analyze", dataHandler.Analyze)
			data.GET("/chart", dataHandler.Chart)
			data.GET("/categories", dataHandler.Categories)
			data.GET("/subcategories", dataHandler.Subcategories)
			data.GET("/regions", dataHandler.Regions)
			data.GET("/countries", dataHandler.Countries)
			data.GET("/category-mapping", dataHandler.CategoryMapping)
			data.GET("/competitive-analysis", dataHandler.CompetitiveAnalysis)
			data.GET("/web-search", dataHandler.WebSearch)
			data.GET("/enhanced-analysis", dataHandler.EnhancedAnalysis)
			data.GET("/direct-result", dataHandler.DirectResult)
			data.GET("/llm-analysis", dataHandler.LLMAnalysis)
		}
	}

	return router
}

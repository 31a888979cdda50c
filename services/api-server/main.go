package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freedkr/paycheck/internal/compliance"
	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/document"
	"github.com/freedkr/paycheck/internal/logging"
	"github.com/freedkr/paycheck/internal/notify"
	"github.com/freedkr/paycheck/internal/ocr"
	"github.com/freedkr/paycheck/internal/pipeline"
	"github.com/freedkr/paycheck/internal/report"
	"github.com/freedkr/paycheck/internal/storage"
	"github.com/freedkr/paycheck/services/api-server/handlers"
	"github.com/freedkr/paycheck/services/api-server/middleware"
)

type Server struct {
	config   *config.Config
	logger   *slog.Logger
	gcs      *storage.GCSStorage
	router   *gin.Engine
	handlers *handlers.Handlers
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.App)

	server, err := NewServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("创建服务器失败", "error", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.Error("服务器异常退出", "error", err)
		os.Exit(1)
	}
}

func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	gin.SetMode(cfg.APIServer.Mode)
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	}

	server := &Server{config: cfg, logger: logger}

	var resolverOpts []storage.ResolverOption
	var archiver pipeline.Archiver
	if cfg.Storage.Enabled {
		logger.Info("正在初始化对象存储", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.BucketName)
		minioStorage, err := storage.NewMinIOStorage(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("初始化存储失败: %w", err)
		}
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("确保存储桶失败: %w", err)
		}
		resolverOpts = append(resolverOpts, storage.WithObjectStore(minioStorage))
		if cfg.Storage.ArchiveReports {
			archiver = storage.NewReportArchiver(minioStorage, cfg.Storage.ReportPrefix)
		}
	}
	if cfg.GCS.Enabled {
		logger.Info("正在初始化GCS客户端")
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("初始化GCS失败: %w", err)
		}
		server.gcs = gcs
		resolverOpts = append(resolverOpts, storage.WithBlobReader(gcs))
	}

	rules, err := compliance.RulesFromConfig(cfg.Compliance)
	if err != nil {
		return nil, fmt.Errorf("解析合规规则失败: %w", err)
	}

	docRenderer := document.NewRenderer(cfg.Renderer, document.PDFCPUCounter{},
		document.NewPopplerRasterizer(cfg.Renderer.Command), logger)
	engine := ocr.NewTesseractEngine(cfg.OCR, cfg.Renderer.DPI)

	processor := pipeline.NewProcessor(pipeline.Deps{
		Fetcher:    storage.NewResolver(cfg.Source, resolverOpts...),
		Renderer:   docRenderer,
		Recognizer: ocr.NewRecognizer(engine, cfg.OCR, logger),
		Evaluator:  compliance.NewEvaluator(rules),
		Reporter:   report.NewRenderer(cfg.Report, logger),
		Notifier:   notify.NewNotifier(cfg.Email, logger),
		Archiver:   archiver,
	}, pipeline.Options{ReturnReportOnFailure: cfg.Delivery.ReturnReportOnFailure}, logger)

	server.handlers = handlers.NewHandlers(processor, cfg.APIServer.Timeout, cfg.Report.FileName, logger)
	server.router = NewRouter(server.handlers, logger)
	return server, nil
}

// NewRouter 注册中间件与路由
func NewRouter(h *handlers.Handlers, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	router.GET("/", h.Health)
	router.POST("/process-paystub", h.ProcessPaystub)
	return router
}

func (s *Server) Start() error {
	addr := s.config.APIServer.Addr()

	// 写超时需覆盖完整的处理时长
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.APIServer.Timeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API服务器启动", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	s.logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		s.logger.Error("服务器关闭失败", "error", err)
		return err
	}

	if s.gcs != nil {
		if err := s.gcs.Close(); err != nil {
			s.logger.Warn("关闭GCS客户端失败", "error", err)
		}
	}

	s.logger.Info("服务器已关闭")
	return nil
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/doc-forge/internal/config"
	"github.com/yourusername/doc-forge/internal/docgen"
	"github.com/yourusername/doc-forge/internal/jobs"
	"github.com/yourusername/doc-forge/internal/queue"
	"github.com/yourusername/doc-forge/internal/render"
	"github.com/yourusername/doc-forge/internal/storage"
)

// docsDeps はドキュメント生成APIの依存一式です。
type docsDeps struct {
	cfg     *config.Config
	manager *jobs.Manager
	store   *storage.Local
	service *docgen.Service
	queue   *queue.Queue
}

// setupDocs はストレージ・ジョブレジストリ・生成サービスを組み立てます。
// QUEUE_REDIS_URL が設定されている場合は Asynq ワーカーも起動します。
func setupDocs(cfg *config.Config, logger *log.Logger) (*docsDeps, error) {
	store, err := storage.NewLocal(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	manager := jobs.NewManager(store, cfg.JobResultBaseURL, logger)
	renderer := render.NewPDFRenderer(logger)

	service := docgen.NewService(manager, store, renderer, logger)
	service.SetDefaultLanguage(cfg.DefaultLanguage)
	// リリースモードでは失敗メッセージにスタックトレースを含めない
	service.SetDebugStack(cfg.GinMode != gin.ReleaseMode)

	deps := &docsDeps{
		cfg:     cfg,
		manager: manager,
		store:   store,
		service: service,
	}

	if cfg.QueueRedisURL != "" {
		q, err := queue.New(cfg.QueueRedisURL, service, logger)
		if err != nil {
			return nil, err
		}
		service.SetDispatcher(q)
		q.Start()
		deps.queue = q
		logger.Printf("generation jobs dispatched via queue")
	} else {
		logger.Printf("generation jobs run in-process")
	}

	// 期限切れジョブの定期掃除
	manager.StartSweeper(
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.JobMaxAgeHours)*time.Hour,
	)

	return deps, nil
}

// shutdown はワーカーと掃除ゴルーチンを停止します。
func (d *docsDeps) shutdown(ctx context.Context) error {
	var firstErr error
	if d.queue != nil {
		if err := d.queue.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if err := d.manager.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// setupRoutes は API グループの配線を行います。
func setupRoutes(router *gin.Engine, deps *docsDeps) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		docs := api.Group("/docs")
		{
			docs.POST("/jobs", docgen.SubmitHandler(deps.service))
			docs.GET("/jobs", docgen.ListHandler(deps.manager))
			docs.GET("/jobs/:id", docgen.StatusHandler(deps.manager))
			docs.GET("/jobs/:id/download", docgen.DownloadHandler(deps.manager, deps.store))
			docs.DELETE("/jobs/:id", docgen.DeleteHandler(deps.manager))
			docs.GET("/languages", docgen.LanguagesHandler())
		}
	}
}

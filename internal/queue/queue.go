// Package queue は Asynq による生成ジョブの非同期ディスパッチを提供します。
// キュー未設定の構成では使われず、生成サービスが直接ゴルーチンで実行します。
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
)

const (
	taskTypeGenerate = "docs:generate"
	queueName        = "docs"
)

// JobRunner は生成処理の本体です。
type JobRunner interface {
	Run(ctx context.Context, jobID string)
}

// taskPayload は生成タスクのペイロードです。ジョブ本体はプロセス内の
// レジストリにあるため、IDだけを運びます。
type taskPayload struct {
	JobID string `json:"jobId"`
}

// Queue は Redis 経由でジョブ実行をリクエスト経路から切り離します。
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	runner JobRunner
	logger *log.Logger
}

// New は Redis への疎通を確認した上で Queue を作成します。
// 到達できない場合はエラーを返すので、起動失敗として扱ってください。
func New(redisURL string, runner JobRunner, logger *log.Logger) (*Queue, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	ping := redis.NewClient(opt)
	defer ping.Close()
	if err := ping.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis is not reachable: %w", err)
	}

	asynqOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis uri: %w", err)
	}

	client := asynq.NewClient(asynqOpt)
	server := asynq.NewServer(
		asynqOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	q := &Queue{
		client: client,
		server: server,
		mux:    asynq.NewServeMux(),
		runner: runner,
		logger: logger,
	}
	q.mux.HandleFunc(taskTypeGenerate, q.handleGenerateTask)
	return q, nil
}

// Start はワーカーをバックグラウンドで起動します。
func (q *Queue) Start() {
	go func() {
		if err := q.server.Run(q.mux); err != nil && err != asynq.ErrServerClosed {
			q.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はワーカーとクライアントを停止します。
func (q *Queue) Shutdown(ctx context.Context) error {
	q.server.Shutdown()
	return q.client.Close()
}

// Dispatch は生成タスクをキューに投入します。
func (q *Queue) Dispatch(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID is required")
	}
	body, err := json.Marshal(taskPayload{JobID: jobID})
	if err != nil {
		return err
	}

	// 失敗は Run 側でジョブに記録されるため、キューでの再試行はしない
	task := asynq.NewTask(taskTypeGenerate, body, asynq.Queue(queueName))
	if _, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return err
	}
	return nil
}

func (q *Queue) handleGenerateTask(ctx context.Context, task *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}
	q.runner.Run(ctx, payload.JobID)
	return nil
}

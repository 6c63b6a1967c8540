// Package docgen はドキュメント生成ジョブのオーケストレーションと
// HTTP APIを提供します。
package docgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/yourusername/doc-forge/internal/jobs"
	"github.com/yourusername/doc-forge/internal/render"
)

// ArtifactStore は生成サービスが利用するストレージ機能です。
type ArtifactStore interface {
	Save(data []byte, suggestedName string) (string, error)
	Read(location string) ([]byte, error)
	Delete(location string) error
}

// Dispatcher はジョブ実行をリクエスト経路の外へ切り離します。
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// ArtifactMeta は完了ジョブに付く成果物の概要です。
type ArtifactMeta struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Pages    int    `json:"pages"`
}

// Service はジョブを pending から終端状態まで1回だけ進めます。
type Service struct {
	manager         *jobs.Manager
	store           ArtifactStore
	renderer        render.Renderer
	dispatcher      Dispatcher
	logger          *log.Logger
	debugStack      bool
	defaultLanguage string
}

// NewService は Service を作成します。ディスパッチャー未設定の間は
// ゴルーチンでその場から実行します。
func NewService(manager *jobs.Manager, store ArtifactStore, renderer render.Renderer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		manager:         manager,
		store:           store,
		renderer:        renderer,
		logger:          logger,
		defaultLanguage: "en",
	}
}

// SetDispatcher は生成処理の投入先を差し替えます（キュー運用時）。
func (s *Service) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// SetDebugStack は失敗メッセージへスタックトレースを含めるかを設定します。
// 本番モードでは無効にしてください。
func (s *Service) SetDebugStack(v bool) { s.debugStack = v }

// SetDefaultLanguage は言語未指定時のフォールバックを設定します。
func (s *Service) SetDefaultLanguage(code string) {
	s.defaultLanguage = render.NormalizeLanguage(code, "en")
}

// Submit は入力を検証してジョブを登録し、生成処理を非同期に開始して
// ジョブIDを返します。ここで返るエラーは全て同期エラーで、その場合
// ジョブは残りません（ディスパッチ失敗時は登録を取り消します）。
// 呼び出しは生成完了を待ちません。
func (s *Service) Submit(ctx context.Context, documentType string, formData map[string]any, language string) (string, error) {
	if err := render.ValidateSubmission(documentType, formData); err != nil {
		return "", err
	}

	lang := render.NormalizeLanguage(language, s.defaultLanguage)
	job := s.manager.Create(documentType, formData, lang)

	if err := s.dispatch(ctx, job.ID); err != nil {
		s.manager.Delete(job.ID)
		return "", fmt.Errorf("failed to schedule generation: %w", err)
	}
	return job.ID, nil
}

func (s *Service) dispatch(ctx context.Context, jobID string) error {
	if s.dispatcher != nil {
		return s.dispatcher.Dispatch(ctx, jobID)
	}
	// リクエストのキャンセルで生成を道連れにしない
	go s.Run(context.WithoutCancel(ctx), jobID)
	return nil
}

// Run はジョブを processing を経て completed / failed まで進めます。
// エラーも panic もこのメソッドの外へは出しません。ジョブ作成直後に
// 1回だけ呼ばれる契約で、同一IDでの並行呼び出しは想定していません。
func (s *Service) Run(ctx context.Context, jobID string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic during generation job=%s: %v", jobID, rec)
			s.fail(jobID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	job, err := s.manager.Transition(jobID, jobs.StatusProcessing, jobs.TransitionUpdate{})
	if err != nil {
		s.logger.Printf("cannot start generation job=%s: %v", jobID, err)
		return
	}

	out, err := s.renderer.Render(ctx, job.DocumentType, job.FormData, job.Language)
	if err != nil {
		s.fail(jobID, s.failureMessage(err))
		return
	}

	// 出力ディレクトリは全ジョブ共有のため、ファイル名にジョブIDを含める
	location, err := s.store.Save(out.Data, fmt.Sprintf("%s_%s", jobID, out.Filename))
	if err != nil {
		s.fail(jobID, s.failureMessage(fmt.Errorf("failed to store artifact: %w", err)))
		return
	}

	meta := ArtifactMeta{Filename: out.Filename, Size: int64(len(out.Data)), Pages: out.Pages}
	if _, err := s.manager.Transition(jobID, jobs.StatusCompleted, jobs.TransitionUpdate{
		ArtifactLocation: location,
		Meta:             meta,
	}); err != nil {
		// 掃除に先を越された場合など。保存済みの成果物は残さない。
		s.logger.Printf("job %s vanished before completion, discarding artifact: %v", jobID, err)
		if delErr := s.store.Delete(location); delErr != nil {
			s.logger.Printf("failed to discard artifact job=%s: %v", jobID, delErr)
		}
	}
}

// fail はジョブを failed にします。failed の記録まで失敗した場合は
// 回復手段がないため、ログに残すことしかできません。
func (s *Service) fail(jobID, message string) {
	if _, err := s.manager.Transition(jobID, jobs.StatusFailed, jobs.TransitionUpdate{Error: message}); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.logger.Printf("job %s vanished before failure could be recorded: %s", jobID, message)
			return
		}
		s.logger.Printf("CRITICAL: failed to record job failure job=%s message=%q: %v", jobID, message, err)
	}
}

func (s *Service) failureMessage(err error) string {
	msg := err.Error()
	var rErr *render.Error
	if errors.As(err, &rErr) {
		msg = rErr.Message
		if rErr.Err != nil {
			msg = fmt.Sprintf("%s: %v", rErr.Message, rErr.Err)
		}
	}
	if s.debugStack {
		msg = msg + "\n" + string(debug.Stack())
	}
	return msg
}

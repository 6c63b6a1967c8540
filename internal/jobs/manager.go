package jobs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ArtifactDeleter は成果物の削除だけを切り出したストレージ機能です。
type ArtifactDeleter interface {
	Delete(location string) error
}

// Manager は全ジョブを保持する唯一のレジストリです。プロセス内で共有される
// 可変状態はこのマップだけで、全ての読み書きは内部のロックで保護されます。
// ジョブを書き換えてよいのは Manager のメソッドのみです。
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	artifacts ArtifactDeleter
	baseURL   string
	logger    *log.Logger

	sweepStop chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once
}

// NewManager は Manager を初期化します。resultBaseURL が空の場合、
// ダウンロードURLは /api/docs/jobs/{id}/download 形式になります。
func NewManager(artifacts ArtifactDeleter, resultBaseURL string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		artifacts: artifacts,
		baseURL:   strings.TrimRight(resultBaseURL, "/"),
		logger:    logger,
	}
}

// newJobID は job_<ミリ秒>_<乱数> 形式のIDを生成します。
// プロセス内で衝突しなければ十分で、推測困難である必要はありません。
func newJobID() string {
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Create は pending 状態の新規ジョブを登録し、そのスナップショットを返します。
// レンダリングはここでは行いません。
func (m *Manager) Create(documentType string, formData map[string]any, language string) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:           newJobID(),
		Status:       StatusPending,
		DocumentType: documentType,
		FormData:     formData,
		Language:     language,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return *job
}

// Get はジョブのスナップショットを返します。
func (m *Manager) Get(jobID string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// TransitionUpdate は遷移と同時に書き込む値です。
type TransitionUpdate struct {
	ArtifactLocation string
	Error            string
	Meta             any
}

// 許可される遷移。これ以外は InvalidTransitionError で拒否します。
var legalTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true},
}

// Transition は状態遷移を検証して適用し、更新後のスナップショットを返します。
// completed には成果物の場所が、failed にはエラーメッセージが必須です。
func (m *Manager) Transition(jobID string, next Status, upd TransitionUpdate) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	if !legalTransitions[job.Status][next] {
		return Job{}, &InvalidTransitionError{JobID: jobID, From: job.Status, To: next}
	}

	switch next {
	case StatusCompleted:
		if upd.ArtifactLocation == "" {
			return Job{}, fmt.Errorf("completed requires an artifact location (job=%s)", jobID)
		}
		job.ArtifactLocation = upd.ArtifactLocation
		job.DownloadURL = m.downloadURL(jobID)
		job.Meta = upd.Meta
	case StatusFailed:
		if upd.Error == "" {
			return Job{}, fmt.Errorf("failed requires an error message (job=%s)", jobID)
		}
		job.Error = upd.Error
	}
	job.Status = next
	job.UpdatedAt = time.Now().UTC()

	return *job, nil
}

func (m *Manager) downloadURL(jobID string) string {
	if m.baseURL == "" {
		return fmt.Sprintf("/api/docs/jobs/%s/download", jobID)
	}
	return fmt.Sprintf("%s/%s/download", m.baseURL, jobID)
}

// Delete はジョブを登録から外し、成果物があれば削除を依頼します。
// 成果物削除は後片付けであり、失敗してもログに残すだけです。
// ジョブが実際に削除された場合に true を返します。
func (m *Manager) Delete(jobID string) bool {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if ok {
		delete(m.jobs, jobID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.deleteArtifact(job.ID, job.ArtifactLocation)
	return true
}

func (m *Manager) deleteArtifact(jobID, location string) {
	if location == "" || m.artifacts == nil {
		return
	}
	if err := m.artifacts.Delete(location); err != nil {
		m.logger.Printf("failed to delete artifact job=%s location=%s: %v", jobID, location, err)
	}
}

// ListAll は登録中の全ジョブを作成順で返します。運用確認用です。
func (m *Manager) ListAll() []Job {
	m.mu.RLock()
	list := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		list = append(list, *job)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// SweepExpired は createdAt が maxAge より古いジョブを状態に関わらず削除し、
// 削除した件数を返します。processing 中のジョブが消された場合の扱いは
// 生成サービス側で吸収します。
func (m *Manager) SweepExpired(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	var expired []*Job
	for id, job := range m.jobs {
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, job := range expired {
		m.deleteArtifact(job.ID, job.ArtifactLocation)
	}
	if len(expired) > 0 {
		m.logger.Printf("swept %d expired job(s)", len(expired))
	}
	return len(expired)
}

// StartSweeper は定期掃除をバックグラウンドで開始します。
// テストは SweepExpired を直接呼べるため、起動は任意です。
func (m *Manager) StartSweeper(interval, maxAge time.Duration) {
	m.sweepStop = make(chan struct{})
	m.sweepDone = make(chan struct{})

	go func() {
		defer close(m.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepExpired(maxAge)
			case <-m.sweepStop:
				return
			}
		}
	}()
}

// Shutdown は掃除ゴルーチンを停止し、終了を待ちます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.sweepStop == nil {
		return nil
	}
	m.stopOnce.Do(func() { close(m.sweepStop) })
	select {
	case <-m.sweepDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

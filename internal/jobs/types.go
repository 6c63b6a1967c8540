// Package jobs はドキュメント生成ジョブの登録・状態遷移・掃除を提供します。
package jobs

import (
	"errors"
	"fmt"
	"time"
)

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal は終端状態（これ以上遷移しない状態）かどうかを返します。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job はドキュメント生成の1ジョブを表します。
// ArtifactLocation はストレージだけが解釈する内部ハンドルのため、
// APIレスポンスには含めません。
type Job struct {
	ID               string         `json:"id"`
	Status           Status         `json:"status"`
	DocumentType     string         `json:"documentType"`
	FormData         map[string]any `json:"formData,omitempty"`
	Language         string         `json:"language"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ArtifactLocation string         `json:"-"`
	DownloadURL      string         `json:"downloadUrl,omitempty"`
	Error            string         `json:"error,omitempty"`
	Meta             any            `json:"meta,omitempty"`
}

// ErrNotFound は指定されたジョブが登録されていないことを示します。
var ErrNotFound = errors.New("job not found")

// InvalidTransitionError は状態機械で許可されない遷移を表します。
// 通常運用では発生しない、呼び出し側の実装不備を示すエラーです。
type InvalidTransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job transition %s -> %s (job=%s)", e.From, e.To, e.JobID)
}

package docgen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/doc-forge/internal/jobs"
	"github.com/yourusername/doc-forge/internal/render"
)

// Submitter はジョブの受付を提供します。
type Submitter interface {
	Submit(ctx context.Context, documentType string, formData map[string]any, language string) (string, error)
}

// submitRequest は POST /api/docs/jobs のリクエストボディです。
// 旧フロントエンド互換のため docType / formType も受け付けます。
type submitRequest struct {
	DocumentType string         `json:"documentType"`
	DocType      string         `json:"docType"`
	FormType     string         `json:"formType"`
	FormData     map[string]any `json:"formData"`
	Language     string         `json:"language"`
}

func (r submitRequest) documentType() string {
	for _, v := range []string{r.DocumentType, r.DocType, r.FormType} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// SubmitHandler は POST /api/docs/jobs のハンドラーを返します。
// 検証を通過した場合は 202 と jobId を即座に返し、生成完了は待ちません。
func SubmitHandler(svc Submitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "リクエストボディをJSONで送信してください。",
			})
			return
		}

		docType := req.documentType()
		if docType == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "documentType を指定してください。",
			})
			return
		}

		jobID, err := svc.Submit(c.Request.Context(), docType, req.FormData, req.Language)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

// StatusHandler は GET /api/docs/jobs/:id のハンドラーを返します。
func StatusHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := manager.Get(c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, statusPayload(job))
	}
}

func statusPayload(job jobs.Job) gin.H {
	payload := gin.H{
		"jobId":        job.ID,
		"documentType": job.DocumentType,
		"language":     job.Language,
		"status":       job.Status,
		"createdAt":    job.CreatedAt,
		"updatedAt":    job.UpdatedAt,
	}
	if job.DownloadURL != "" {
		payload["downloadUrl"] = job.DownloadURL
	}
	if job.Error != "" {
		payload["error"] = job.Error
	}
	if job.Meta != nil {
		payload["meta"] = job.Meta
	}
	return payload
}

// DownloadHandler は GET /api/docs/jobs/:id/download のハンドラーを返します。
// 完了済みジョブの成果物をそのままのバイト列で返します。
func DownloadHandler(manager *jobs.Manager, store ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := manager.Get(c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		if job.Status != jobs.StatusCompleted || job.ArtifactLocation == "" {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_RESULT_NOT_FOUND",
				"message": "ジョブの成果物はまだありません。",
			})
			return
		}

		data, err := store.Read(job.ArtifactLocation)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "JOB_RESULT_NOT_FOUND",
					"message": "ジョブの成果物が見つかりませんでした。",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブの成果物取得に失敗しました。",
			})
			return
		}

		filename := filepath.Base(job.ArtifactLocation)
		if meta, ok := job.Meta.(ArtifactMeta); ok && meta.Filename != "" {
			filename = meta.Filename
		}

		contentType := mimetype.Detect(data).String()
		encodedName := url.PathEscape(filename)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, encodedName))
		c.Header("Cache-Control", "no-store")
		c.Header("X-Job-Id", job.ID)
		c.Data(http.StatusOK, contentType, data)
	}
}

// DeleteHandler は DELETE /api/docs/jobs/:id のハンドラーを返します。
// ダウンロード後の明示的な後片付け用です。
func DeleteHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !manager.Delete(c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// ListHandler は GET /api/docs/jobs のハンドラーを返します。
// 運用者向けのデバッグ用エンドポイントで、認証は掛けていません。
func ListHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := manager.ListAll()
		summaries := make([]gin.H, 0, len(list))
		for _, job := range list {
			summaries = append(summaries, statusPayload(job))
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(summaries),
			"jobs":  summaries,
		})
	}
}

// LanguagesHandler は GET /api/docs/languages のハンドラーを返します。
func LanguagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"languages": render.SupportedLanguages()})
	}
}

func respondWithError(c *gin.Context, err error) {
	var rErr *render.Error
	switch {
	case errors.As(err, &rErr):
		status := http.StatusBadRequest
		if rErr.Code == "RENDER_FAILED" {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"code":    rErr.Code,
			"message": rErr.Message,
		})
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "JOB_NOT_FOUND",
			"message": "指定されたジョブは存在しません。",
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

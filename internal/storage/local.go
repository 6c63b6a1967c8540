// Package storage は生成済みドキュメントのローカル保存を提供します。
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Local は管理ディレクトリ配下に成果物を1ファイルずつ保存します。
// キャッシュは持たず、読み出しは毎回ファイルシステムに触れます。
type Local struct {
	dir    string
	logger *log.Logger
}

// NewLocal は保存先ディレクトリを解決して Local を作成します。
// 指定ディレクトリが使えない場合は OS の一時ディレクトリへフォールバックし、
// それも失敗したらエラーを返します（起動失敗として扱ってください）。
func NewLocal(dir string, logger *log.Logger) (*Local, error) {
	if logger == nil {
		logger = log.Default()
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err == nil {
			return &Local{dir: dir, logger: logger}, nil
		} else {
			logger.Printf("output directory %s is not usable, falling back to temp dir: %v", dir, err)
		}
	}

	fallback := filepath.Join(os.TempDir(), "doc-forge")
	if err := os.MkdirAll(fallback, 0o750); err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	return &Local{dir: fallback, logger: logger}, nil
}

// Dir は解決済みの管理ディレクトリを返します。
func (l *Local) Dir() string { return l.dir }

// Save はバイト列を新規ファイルとして書き込み、その場所を返します。
// 既存ファイルへの上書きは行いません。
func (l *Local) Save(data []byte, suggestedName string) (string, error) {
	name := sanitizeFilename(suggestedName)
	if name == "" {
		return "", fmt.Errorf("suggested filename is empty")
	}

	path := filepath.Join(l.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Read は保存済み成果物を読み出します。
// 既に削除されている場合は fs.ErrNotExist を含むエラーを返します。
func (l *Local) Read(location string) ([]byte, error) {
	return os.ReadFile(location)
}

// Delete は成果物ファイルを削除します。既に存在しない場合は成功扱いです。
func (l *Local) Delete(location string) error {
	if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// sanitizeFilename はパス区切りなどを取り除いた安全なファイル名を返します。
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

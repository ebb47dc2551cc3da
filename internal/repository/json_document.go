package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// jsonDocument は1つのJSON配列ドキュメントとして保存されるファイル。
// 変更のたびにドキュメント全体を書き直す。一時ファイルへ書いてからrenameするため、
// 途中まで書かれたファイルが読まれることはない。
type jsonDocument struct {
	path string
}

// Read はドキュメントを読み込んでvにデコードする。
// ファイルが存在しない場合はfalseを返し、vは変更しない。
func (d jsonDocument) Read(ctx context.Context, v any) (bool, error) {
	raw, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ファイルの読み込みに失敗しました: %s: %w", d.path, err)
	}
	if len(raw) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("JSONのパースに失敗しました: %s: %w", d.path, err)
	}
	return true, nil
}

// Write はvをインデント付きJSONとしてドキュメント全体を置き換える。
func (d jsonDocument) Write(ctx context.Context, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONのエンコードに失敗しました: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗しました: %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ファイルの置き換えに失敗しました: %s: %w", d.path, err)
	}
	return nil
}

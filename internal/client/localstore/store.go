package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/booktracker/internal/repository"
)

// EntriesKey は記録一覧を保存するキー。
const EntriesKey = "bookTracker.entries.v1"

// document はKVの1つのキーをrepository.Documentとして扱う。
type document struct {
	kv  KV
	key string
}

func (d document) Read(ctx context.Context, v any) (bool, error) {
	raw, ok, err := d.kv.Get(ctx, d.key)
	if err != nil || !ok {
		return false, err
	}
	if raw == "" {
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("ローカルストアのJSONのパースに失敗しました: %w", err)
	}
	return true, nil
}

func (d document) Write(ctx context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("JSONのエンコードに失敗しました: %w", err)
	}
	return d.kv.Set(ctx, d.key, string(raw))
}

// NewEntryStore はKVの EntriesKey に全記録を保存するEntryRepositoryを返す。
// サーバー側のファイル保存と同じ契約と制約を持つ。
func NewEntryStore(kv KV) *repository.DocumentEntryRepo {
	return repository.NewDocumentEntryRepo(document{kv: kv, key: EntriesKey})
}

package repository

import (
	"context"
	"time"

	"github.com/hitoshi/booktracker/internal/model"
)

// Document は記録一覧を1つのJSON配列としてまるごと読み書きする保存先。
// ファイルとクライアント側のKVストアが実装する。
type Document interface {
	// Read はドキュメントをvにデコードする。未作成の場合はfalseを返す。
	Read(ctx context.Context, v any) (bool, error)
	// Write はvでドキュメント全体を置き換える。
	Write(ctx context.Context, v any) error
}

// DocumentEntryRepo はDocument1つに全記録を保存するリポジトリ。
//
// 変更のたびにドキュメント全体を読み込み、変更し、書き戻す。ロックは持たない。
// 同じドキュメントを複数の書き込み元が同時に更新すると、後から書いた側が
// 先の変更を上書きして失われる。プロセス内の直列化は呼び出し側
// （entry.Service）が行い、複数プロセスでの共有はサポートしない。
type DocumentEntryRepo struct {
	doc Document
	now func() time.Time
}

// NewDocumentEntryRepo は任意のDocumentを保存先とするリポジトリを生成する。
func NewDocumentEntryRepo(doc Document) *DocumentEntryRepo {
	return &DocumentEntryRepo{
		doc: doc,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// NewFileEntryRepo はJSONファイルを保存先とするリポジトリを生成する。
func NewFileEntryRepo(path string) *DocumentEntryRepo {
	return NewDocumentEntryRepo(jsonDocument{path: path})
}

// List は全記録をドキュメント内の順序（追加順）で返す。
func (r *DocumentEntryRepo) List(ctx context.Context) ([]*model.Entry, error) {
	return r.load(ctx)
}

// Append は記録を末尾に追加する。IDは既存の最大値+1を採番する。
func (r *DocumentEntryRepo) Append(ctx context.Context, entry *model.Entry) (*model.Entry, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	saved := entry.Clone()
	saved.ID = nextEntryID(entries)
	saved.Created = r.now()
	saved.EditedAt = nil
	saved.Status = model.EntryStatusActive

	entries = append(entries, saved)
	if err := r.doc.Write(ctx, entries); err != nil {
		return nil, err
	}
	return saved.Clone(), nil
}

// Update は有効な記録にパッチを適用して書き戻す。
func (r *DocumentEntryRepo) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOfEntry(entries, id)
	if idx == -1 || !entries[idx].IsActive() {
		return nil, ErrNotFound
	}

	updated := entries[idx].Clone()
	patch.Apply(updated)
	editedAt := r.now()
	updated.EditedAt = &editedAt
	updated.Status = model.EntryStatusActive
	entries[idx] = updated

	if err := r.doc.Write(ctx, entries); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// SoftDelete は記録をdeletedにして書き戻す。
func (r *DocumentEntryRepo) SoftDelete(ctx context.Context, id int64) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOfEntry(entries, id)
	if idx == -1 {
		return ErrNotFound
	}

	editedAt := r.now()
	entries[idx].Status = model.EntryStatusDeleted
	entries[idx].EditedAt = &editedAt

	return r.doc.Write(ctx, entries)
}

// Clear は条件に一致する記録を取り除いたドキュメントを書き戻す。
func (r *DocumentEntryRepo) Clear(ctx context.Context, platform model.Platform) (int64, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return 0, err
	}

	kept, removed := partitionByPlatform(entries, platform)
	if err := r.doc.Write(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *DocumentEntryRepo) load(ctx context.Context) ([]*model.Entry, error) {
	entries := []*model.Entry{}
	if _, err := r.doc.Read(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// nextEntryID は既存の最大ID+1を返す。
func nextEntryID(entries []*model.Entry) int64 {
	var maxID int64
	for _, e := range entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

func indexOfEntry(entries []*model.Entry, id int64) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// partitionByPlatform はplatformに一致しない記録と、一致して取り除かれた件数を返す。
// platformが空の場合は全件を取り除く。
func partitionByPlatform(entries []*model.Entry, platform model.Platform) ([]*model.Entry, int64) {
	if platform == "" {
		return []*model.Entry{}, int64(len(entries))
	}
	kept := make([]*model.Entry, 0, len(entries))
	var removed int64
	for _, e := range entries {
		if e.Platform == platform {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}

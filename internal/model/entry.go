// Package model はドメインモデルを定義する。
package model

import "time"

// Platform はチームが活動するプラットフォームを表す。
type Platform string

const (
	// PlatformFacebook はFacebookグループで活動するチーム。
	PlatformFacebook Platform = "facebook"
	// PlatformDiscord はDiscordサーバーで活動するチーム。
	PlatformDiscord Platform = "discord"
)

// Valid はプラットフォームが既知の値かどうかを返す。
func (p Platform) Valid() bool {
	return p == PlatformFacebook || p == PlatformDiscord
}

// EntryStatus は読了記録の状態を表す。
type EntryStatus string

const (
	// EntryStatusActive は集計対象の有効な記録。
	EntryStatusActive EntryStatus = "active"
	// EntryStatusDeleted は論理削除された記録。エクスポートにのみ残る。
	EntryStatusDeleted EntryStatus = "deleted"
	// EntryStatusEdited は予約済みの状態。現在はどの操作も設定しない。
	// エクスポートの並び順ではアーカイブとして扱う。
	EntryStatusEdited EntryStatus = "edited"
)

// Entry は1件の読了記録を表す。
// JSONタグはAPIレスポンスとファイル保存形式の両方で使用する。
type Entry struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Discord        string      `json:"discord,omitempty"`
	Author         string      `json:"author,omitempty"`
	Book           string      `json:"book"`
	Pages          int         `json:"pages"`
	Team           string      `json:"team"`
	Platform       Platform    `json:"platform"`
	CompletionDate string      `json:"completionDate,omitempty"` // YYYY-MM-DD
	FavoriteScene  string      `json:"favoriteScene,omitempty"`
	Created        time.Time   `json:"created"`
	EditedAt       *time.Time  `json:"editedAt,omitempty"`
	Status         EntryStatus `json:"status"`
}

// IsActive は記録が集計対象かどうかを返す。
// 状態が空の古い記録は有効として扱う。
func (e *Entry) IsActive() bool {
	return e.Status == "" || e.Status == EntryStatusActive
}

// IsArchived は記録がアーカイブ扱い（deleted または edited）かどうかを返す。
func (e *Entry) IsArchived() bool {
	return e.Status == EntryStatusDeleted || e.Status == EntryStatusEdited
}

// Clone は記録のコピーを返す。
func (e *Entry) Clone() *Entry {
	c := *e
	if e.EditedAt != nil {
		t := *e.EditedAt
		c.EditedAt = &t
	}
	return &c
}

// EntryPatch は部分更新の入力を表す。nilのフィールドは変更しない。
type EntryPatch struct {
	Name           *string   `json:"name,omitempty"`
	Discord        *string   `json:"discord,omitempty"`
	Author         *string   `json:"author,omitempty"`
	Book           *string   `json:"book,omitempty"`
	Pages          *int      `json:"pages,omitempty"`
	Team           *string   `json:"team,omitempty"`
	Platform       *Platform `json:"platform,omitempty"`
	CompletionDate *string   `json:"completionDate,omitempty"`
	FavoriteScene  *string   `json:"favoriteScene,omitempty"`
}

// Apply はパッチの内容を記録に適用する。
func (p EntryPatch) Apply(e *Entry) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Discord != nil {
		e.Discord = *p.Discord
	}
	if p.Author != nil {
		e.Author = *p.Author
	}
	if p.Book != nil {
		e.Book = *p.Book
	}
	if p.Pages != nil {
		e.Pages = *p.Pages
	}
	if p.Team != nil {
		e.Team = *p.Team
	}
	if p.Platform != nil {
		e.Platform = *p.Platform
	}
	if p.CompletionDate != nil {
		e.CompletionDate = *p.CompletionDate
	}
	if p.FavoriteScene != nil {
		e.FavoriteScene = *p.FavoriteScene
	}
}

package entry

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/booktracker/internal/model"
)

// MinFavoriteSceneLength はお気に入りの場面に必要な最小文字数（ルーン数）。
const MinFavoriteSceneLength = 20

// completionDateLayout は読了日の形式（YYYY-MM-DD）。
const completionDateLayout = "2006-01-02"

// Validate は記録が保存可能な状態かを検証する。
// 文字列は既にサニタイズ・トリム済みであることを前提とする。
func Validate(e *model.Entry) error {
	if e.Name == "" || e.Book == "" || e.Team == "" {
		return model.NewValidationError("Missing required fields")
	}
	if e.Pages <= 0 {
		return model.NewValidationError("Pages must be a positive number")
	}
	if !e.Platform.Valid() {
		return model.NewValidationError("Invalid platform")
	}
	if e.Platform == model.PlatformDiscord && e.Discord == "" {
		return model.NewValidationError("Discord name required for Discord platform")
	}
	if e.CompletionDate == "" {
		return model.NewValidationError("Completion date is required")
	}
	if _, err := time.Parse(completionDateLayout, e.CompletionDate); err != nil {
		return model.NewValidationError("Completion date must be YYYY-MM-DD")
	}
	if utf8.RuneCountInString(e.FavoriteScene) < MinFavoriteSceneLength {
		return model.NewValidationError("Favorite scene must be at least 20 characters")
	}
	return nil
}

// sameBook は書名（大文字小文字を区別しない）とチーム（完全一致）が同じかを返す。
func sameBook(a, b *model.Entry) bool {
	return a.Team == b.Team && strings.ToLower(a.Book) == strings.ToLower(b.Book)
}

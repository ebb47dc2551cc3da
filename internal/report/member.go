package report

import (
	"strings"

	"github.com/hitoshi/booktracker/internal/model"
)

// MemberSummary は1メンバーの有効な記録と合計。
type MemberSummary struct {
	Entries    []*model.Entry `json:"entries"`
	TotalPages int            `json:"totalPages"`
	TotalBooks int            `json:"totalBooks"`
}

// SummarizeMember はメンバーの有効な記録を作成順に集める。
// Discordではdiscord名、Facebookでは表示名で照合し、大文字小文字は区別しない。
func SummarizeMember(entries []*model.Entry, platform model.Platform, handle string) MemberSummary {
	handle = strings.ToLower(strings.TrimSpace(handle))
	summary := MemberSummary{Entries: []*model.Entry{}}
	if handle == "" {
		return summary
	}

	for _, e := range entries {
		if !e.IsActive() || !matchesMember(e, platform, handle) {
			continue
		}
		summary.Entries = append(summary.Entries, e)
		summary.TotalPages += e.Pages
	}
	summary.TotalBooks = len(summary.Entries)
	return summary
}

func matchesMember(e *model.Entry, platform model.Platform, handle string) bool {
	if platform == model.PlatformFacebook {
		return e.Platform == model.PlatformFacebook && strings.ToLower(e.Name) == handle
	}
	return strings.ToLower(e.Discord) == handle
}

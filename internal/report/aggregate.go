// Package report は読了記録の集計とCSV・HTMLへの出力を提供する。
package report

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hitoshi/booktracker/internal/model"
)

// NoTeam はチーム名が空の記録を集める集計キー。
const NoTeam = "(No Team)"

// Filter はチーム集計の絞り込み条件。空のフィールドは条件なしを意味する。
type Filter struct {
	Platform model.Platform // チームの登録プラットフォーム
	Team     string         // チーム名の完全一致
	Member   string         // このメンバー（大文字小文字を区別しない）が記録を持つチームのみ
	Query    string         // チーム名の部分一致（大文字小文字を区別しない）
}

// MemberTotal はチーム内の1メンバーの合計ページ数。
type MemberTotal struct {
	Name       string `json:"name"`
	Discord    string `json:"discord,omitempty"`
	TotalPages int    `json:"totalPages"`
	Books      int    `json:"books"`
}

// TeamTotal はチーム単位の集計結果。
// Platformはチーム一覧から結合し、未登録のチームでは空になる。
type TeamTotal struct {
	Team       string         `json:"team"`
	Platform   model.Platform `json:"platform,omitempty"`
	TotalPages int            `json:"totalPages"`
	Members    []MemberTotal  `json:"members"`
}

type teamBucket struct {
	total   int
	members map[string]*MemberTotal
}

// Aggregate は有効な記録をチームとメンバーごとに集計し、条件に合うチームを並べて返す。
// 合計は加算のみで求めるため、記録の順序に依存しない。
func Aggregate(entries []*model.Entry, teams []model.Team, f Filter) []TeamTotal {
	buckets := make(map[string]*teamBucket)
	for _, e := range entries {
		if !e.IsActive() {
			continue
		}
		if f.Platform != "" && e.Platform != f.Platform {
			continue
		}

		key := e.Team
		if key == "" {
			key = NoTeam
		}
		b, ok := buckets[key]
		if !ok {
			b = &teamBucket{members: make(map[string]*MemberTotal)}
			buckets[key] = b
		}
		b.total += e.Pages

		memberKey := strings.ToLower(e.Name)
		m, ok := b.members[memberKey]
		if !ok {
			m = &MemberTotal{Name: e.Name, Discord: e.Discord}
			b.members[memberKey] = m
		}
		m.TotalPages += e.Pages
		m.Books++
	}

	registry := make(map[string]model.Platform, len(teams))
	for _, t := range teams {
		registry[t.Name] = t.Platform
	}

	member := strings.ToLower(strings.TrimSpace(f.Member))
	query := strings.ToLower(strings.TrimSpace(f.Query))

	keys := make([]string, 0, len(buckets))
	for key, b := range buckets {
		if f.Platform != "" {
			if p, ok := registry[key]; !ok || p != f.Platform {
				continue
			}
		}
		if f.Team != "" && key != f.Team {
			continue
		}
		if member != "" {
			if _, ok := b.members[member]; !ok {
				continue
			}
		}
		if query != "" && !strings.Contains(strings.ToLower(key), query) {
			continue
		}
		keys = append(keys, key)
	}

	sortLocale(keys)

	result := make([]TeamTotal, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		result = append(result, TeamTotal{
			Team:       key,
			Platform:   registry[key],
			TotalPages: b.total,
			Members:    sortedMembers(b.members),
		})
	}
	return result
}

func sortedMembers(members map[string]*MemberTotal) []MemberTotal {
	names := make([]string, 0, len(members))
	for key := range members {
		names = append(names, key)
	}
	sortLocale(names)

	out := make([]MemberTotal, 0, len(names))
	for _, key := range names {
		out = append(out, *members[key])
	}
	return out
}

// sortLocale は英語の照合順序で並べる。照合上等しい場合はバイト順で決める。
// collate.Collatorは並行利用できないため、呼び出しごとに生成する。
func sortLocale(keys []string) {
	c := collate.New(language.English)
	sort.SliceStable(keys, func(i, j int) bool {
		if r := c.CompareString(keys[i], keys[j]); r != 0 {
			return r < 0
		}
		return keys[i] < keys[j]
	})
}

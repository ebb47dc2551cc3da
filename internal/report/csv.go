package report

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/booktracker/internal/model"
)

// csvHeader はエクスポートの見出し行。
var csvHeader = []string{
	"Name", "Discord", "Author", "Book", "Pages", "Team", "Platform",
	"Completion Date", "Favorite Scene", "Date Added", "Last Edited", "Status",
}

// timestampLayout はエクスポートの日時形式（UTC、ミリ秒まで）。
const timestampLayout = "2006-01-02T15:04:05.000Z"

var whitespaceRun = regexp.MustCompile(`\s+`)

// AllTeams はエクスポートで全チームを対象にする指定値。
const AllTeams = "all"

// ExportFilename はエクスポートファイル名を返す。
func ExportFilename(team string) string {
	if team == "" || team == AllTeams {
		return "book-tracker-entries.csv"
	}
	return "book-tracker-" + whitespaceRun.ReplaceAllString(team, "-") + ".csv"
}

// ExportRows はエクスポート対象の記録を、有効な記録・アーカイブ済みの記録の順に返す。
// それぞれの中では元の順序を保つ。
func ExportRows(entries []*model.Entry, team string) []*model.Entry {
	var active, archived []*model.Entry
	for _, e := range entries {
		if team != "" && team != AllTeams && e.Team != team {
			continue
		}
		switch {
		case e.IsActive():
			active = append(active, e)
		case e.IsArchived():
			archived = append(archived, e)
		}
	}
	return append(active, archived...)
}

// WriteCSV はエクスポートCSVを書き込み、見出しを除いた行数を返す。
// 全フィールドを二重引用符で囲み、行は "\n" で区切る。
func WriteCSV(w io.Writer, entries []*model.Entry, team string) (int, error) {
	rows := ExportRows(entries, team)

	var b strings.Builder
	writeRecord(&b, csvHeader)
	for _, e := range rows {
		b.WriteByte('\n')
		writeRecord(&b, csvFields(e))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func csvFields(e *model.Entry) []string {
	edited := ""
	if e.EditedAt != nil {
		edited = formatTimestamp(*e.EditedAt)
	}
	created := ""
	if !e.Created.IsZero() {
		created = formatTimestamp(e.Created)
	}
	status := string(e.Status)
	if status == "" {
		status = string(model.EntryStatusActive)
	}
	return []string{
		e.Name, e.Discord, e.Author, e.Book, strconv.Itoa(e.Pages), e.Team,
		string(e.Platform), e.CompletionDate, e.FavoriteScene, created, edited, status,
	}
}

func writeRecord(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

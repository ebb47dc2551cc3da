package report

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// teamSummaries はHTMLを解析し、div.team-summaryのテキストを順に返す。
func teamSummaries(t *testing.T, doc string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("html.Parse returned error: %v", err)
	}

	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			for _, a := range n.Attr {
				if a.Key == "class" && a.Val == "team-summary" {
					out = append(out, textOf(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func TestWriteHTML_OneSummaryPerTeam(t *testing.T) {
	totals := []TeamTotal{
		{Team: "Team A", TotalPages: 200},
		{Team: "Team B", TotalPages: 35},
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, totals); err != nil {
		t.Fatalf("WriteHTML returned error: %v", err)
	}

	got := teamSummaries(t, buf.String())
	if len(got) != 2 {
		t.Fatalf("len(summaries) = %d, want 2:\n%s", len(got), buf.String())
	}
	if !strings.Contains(got[0], "Team A") || !strings.Contains(got[0], "200") {
		t.Errorf("summary[0] = %q, want Team A with 200", got[0])
	}
	if !strings.Contains(got[1], "Team B") || !strings.Contains(got[1], "35") {
		t.Errorf("summary[1] = %q, want Team B with 35", got[1])
	}
}

func TestWriteHTML_EscapesTeamName(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, []TeamTotal{{Team: "<script>x</script>", TotalPages: 1}}); err != nil {
		t.Fatalf("WriteHTML returned error: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Errorf("team name was not escaped: %s", buf.String())
	}
	if got := teamSummaries(t, buf.String()); len(got) != 1 || !strings.Contains(got[0], "<script>x</script>") {
		t.Errorf("summaries = %q, want escaped name rendered as text", got)
	}
}

func TestWriteHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, nil); err != nil {
		t.Fatalf("WriteHTML returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "No entries yet.") {
		t.Errorf("html = %q, want empty-state message", buf.String())
	}
}

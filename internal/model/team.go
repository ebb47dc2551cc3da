package model

// Team はプラットフォームに紐づく読書チームを表す。
// 記録はチーム名を非正規化して保持するため、チーム削除は記録に影響しない。
type Team struct {
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
}

// DefaultTeams はチーム一覧がまだ保存されていない場合の初期値。
func DefaultTeams() []Team {
	return []Team{
		{Name: "Team A", Platform: PlatformFacebook},
		{Name: "Team B", Platform: PlatformDiscord},
	}
}

// BookCandidate は書籍検索の候補1件を表す。
type BookCandidate struct {
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	CoverURL string `json:"coverUrl"`
	Pages    int    `json:"pages"`
}

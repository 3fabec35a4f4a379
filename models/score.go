package models

import "time"

// PlayStyle selects the SP or DP chart axis.
type PlayStyle string

const (
	PlayStyleSP PlayStyle = "SP"
	PlayStyleDP PlayStyle = "DP"
)

// ChartType identifies a chart difficulty slot within a song.
type ChartType string

const (
	ChartBeginner    ChartType = "BEGINNER"
	ChartNormal      ChartType = "NORMAL"
	ChartHyper       ChartType = "HYPER"
	ChartAnother     ChartType = "ANOTHER"
	ChartLeggendaria ChartType = "LEGGENDARIA"
)

// ClearType classifies how a chart attempt ended. The declaration order is
// the backend's threshold order, worst to best.
type ClearType string

const (
	ClearFailed    ClearType = "FAILED"
	ClearAssist    ClearType = "ASSIST_CLEAR"
	ClearEasy      ClearType = "EASY_CLEAR"
	ClearNormal    ClearType = "CLEAR"
	ClearHard      ClearType = "HARD_CLEAR"
	ClearExHard    ClearType = "EX_HARD_CLEAR"
	ClearFullCombo ClearType = "FULL_COMBO"
)

// DashboardThresholds are the clear-type buckets the dashboard counts,
// in addition to the overall play total.
var DashboardThresholds = []ClearType{ClearNormal, ClearHard, ClearExHard, ClearFullCombo}

// Song holds the display metadata attached to a score record.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Chart identifies which chart of a song a score belongs to.
type Chart struct {
	PlayStyle PlayStyle `json:"playStyle"`
	Level     int       `json:"level"`
	ChartType ChartType `json:"chartType"`
}

// Score is a read-only best-score record as served by the ScoreBoard backend.
type Score struct {
	ID            int64     `json:"id"`
	Song          Song      `json:"song"`
	Chart         Chart     `json:"chart"`
	BestClearType ClearType `json:"bestClearType"`
	BestDjLevel   string    `json:"bestDjLevel"`
	BestScore     int       `json:"bestScore"`
	BestMissCount *int      `json:"bestMissCount"`
	BestPlayedAt  time.Time `json:"bestPlayedAt"`
	PlayCount     int       `json:"playCount"`
}

// ScorePage is the backend's paged list envelope. Page numbers are zero-based.
type ScorePage struct {
	Content       []Score `json:"content"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
	Number        int     `json:"number"`
	Size          int     `json:"size"`
}

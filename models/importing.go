package models

// ImportResult carries the counts the backend reports after ingesting a
// CSV export. Displayed verbatim; the client never recomputes them.
type ImportResult struct {
	NewSongs       int `json:"newSongs"`
	NewCharts      int `json:"newCharts"`
	InsertedScores int `json:"insertedScores"`
	UpdatedScores  int `json:"updatedScores"`
}

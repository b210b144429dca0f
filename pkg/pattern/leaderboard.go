package pattern

// Leaderboard represents a ranked list of published values.
type Leaderboard struct {
	Label    string
	Items    []LeaderboardItem
	ShowRank bool
}

// LeaderboardItem is a single ranked entry.
type LeaderboardItem struct {
	Name   string // display name
	Metric string // formatted value
	Order  string // "asc", "desc" or empty
	Rank   int
}

func (l *Leaderboard) Type() PatternType { return PatternTypeLeaderboard }

package sumoapi

// Match is one bout in a rikishi's basho record.
type Match struct {
	Result            string `json:"result" yaml:"result"`
	OpponentShikonaEn string `json:"opponentShikonaEn" yaml:"opponent_shikona_en"`
	OpponentShikonaJp string `json:"opponentShikonaJp,omitempty" yaml:"opponent_shikona_jp,omitempty"`
	OpponentID        int    `json:"opponentID" yaml:"opponent_id"`
	Kimarite          string `json:"kimarite" yaml:"kimarite"`
}

// BanzukeEntry is one rikishi's position on the banzuke.
type BanzukeEntry struct {
	Side      string  `json:"side" yaml:"side"`
	RikishiID int     `json:"rikishiID" yaml:"rikishi_id"`
	ShikonaEn string  `json:"shikonaEn" yaml:"shikona_en"`
	ShikonaJp string  `json:"shikonaJp,omitempty" yaml:"shikona_jp,omitempty"`
	RankValue int     `json:"rankValue" yaml:"rank_value"`
	Rank      string  `json:"rank" yaml:"rank"`
	Record    []Match `json:"record,omitempty" yaml:"record,omitempty"`
	Wins      int     `json:"wins" yaml:"wins"`
	Losses    int     `json:"losses" yaml:"losses"`
	Absences  int     `json:"absences" yaml:"absences"`
}

// Banzuke is the ranking sheet of one division for one basho.
type Banzuke struct {
	BashoID  string         `json:"bashoId" yaml:"basho_id"`
	Division string         `json:"division" yaml:"division"`
	East     []BanzukeEntry `json:"east" yaml:"east"`
	West     []BanzukeEntry `json:"west" yaml:"west"`
}

// Award is a yusho or special prize.
type Award struct {
	Type      string `json:"type" yaml:"type"`
	RikishiID int    `json:"rikishiId" yaml:"rikishi_id"`
	ShikonaEn string `json:"shikonaEn" yaml:"shikona_en"`
	ShikonaJp string `json:"shikonaJp,omitempty" yaml:"shikona_jp,omitempty"`
}

// BashoResults describes a tournament and its winners.
type BashoResults struct {
	Date          string  `json:"date" yaml:"date"`
	Location      string  `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate     string  `json:"startDate" yaml:"start_date"`
	EndDate       string  `json:"endDate" yaml:"end_date"`
	Yusho         []Award `json:"yusho" yaml:"yusho"`
	SpecialPrizes []Award `json:"specialPrizes" yaml:"special_prizes"`
}

// Rikishi is a wrestler profile.
type Rikishi struct {
	ID          int     `json:"id" yaml:"id"`
	SumoDBID    int     `json:"sumodbId,omitempty" yaml:"sumodb_id,omitempty"`
	NSKID       int     `json:"nskId,omitempty" yaml:"nsk_id,omitempty"`
	ShikonaEn   string  `json:"shikonaEn" yaml:"shikona_en"`
	ShikonaJp   string  `json:"shikonaJp,omitempty" yaml:"shikona_jp,omitempty"`
	CurrentRank string  `json:"currentRank,omitempty" yaml:"current_rank,omitempty"`
	Heya        string  `json:"heya,omitempty" yaml:"heya,omitempty"`
	BirthDate   string  `json:"birthDate,omitempty" yaml:"birth_date,omitempty"`
	Shusshin    string  `json:"shusshin,omitempty" yaml:"shusshin,omitempty"`
	Height      float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Debut       string  `json:"debut,omitempty" yaml:"debut,omitempty"`
}

// RikishiList is a page of rikishi.
type RikishiList struct {
	Limit   int       `json:"limit" yaml:"limit"`
	Skip    int       `json:"skip" yaml:"skip"`
	Total   int       `json:"total" yaml:"total"`
	Records []Rikishi `json:"records" yaml:"records"`
}

package api

type AccountDto struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type SummonerDto struct {
	Puuid         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int64  `json:"summonerLevel"`
}

type MatchDto struct {
	Metadata MatchMetadataDto `json:"metadata"`
	Info     MatchInfoDto     `json:"info"`
}

type MatchMetadataDto struct {
	MatchID      string   `json:"matchId"`
	DataVersion  string   `json:"dataVersion"`
	Participants []string `json:"participants"`
}

type MatchInfoDto struct {
	GameCreation     int64            `json:"gameCreation"` // unix ms
	GameDuration     int64            `json:"gameDuration"`
	GameEndTimestamp int64            `json:"gameEndTimestamp"`
	GameID           int64            `json:"gameId"`
	GameMode         string           `json:"gameMode"`
	GameType         string           `json:"gameType"`
	GameVersion      string           `json:"gameVersion"`
	MapID            int              `json:"mapId"`
	QueueID          int              `json:"queueId"`
	Participants     []ParticipantDto `json:"participants"`
}

type ParticipantDto struct {
	Puuid          string `json:"puuid"`
	RiotIDGameName string `json:"riotIdGameName,omitempty"`
	RiotIDTagline  string `json:"riotIdTagline,omitempty"`
	ChampionID     int    `json:"championId"`
	ChampionName   string `json:"championName"`
	TeamID         int    `json:"teamId"`
	TeamPosition   string `json:"teamPosition"`
	Win            bool   `json:"win"`

	Kills                         int `json:"kills"`
	Deaths                        int `json:"deaths"`
	Assists                       int `json:"assists"`
	GoldEarned                    int `json:"goldEarned"`
	TotalDamageDealtToChampions   int `json:"totalDamageDealtToChampions"`
	TotalDamageTaken              int `json:"totalDamageTaken"`
	TotalMinionsKilled            int `json:"totalMinionsKilled"`
	NeutralMinionsKilled          int `json:"neutralMinionsKilled"`
	TotalAllyJungleMinionsKilled  int `json:"totalAllyJungleMinionsKilled"`
	TotalEnemyJungleMinionsKilled int `json:"totalEnemyJungleMinionsKilled"`
	VisionScore                   int `json:"visionScore"`
	TimePlayed                    int `json:"timePlayed"`
}

type LeagueEntryDto struct {
	LeagueID     string `json:"leagueId"`
	Puuid        string `json:"puuid"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
	Veteran      bool   `json:"veteran"`
	FreshBlood   bool   `json:"freshBlood"`
	Inactive     bool   `json:"inactive"`
}

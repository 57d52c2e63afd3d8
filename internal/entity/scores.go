package entity

type Scores struct {
	X int `json:"x"`
	O int `json:"o"`
}

type Opponent string

const (
	OpponentHuman    Opponent = "human"
	OpponentComputer Opponent = "computer"
)

func (that Opponent) IsValid() bool {
	return that == OpponentHuman || that == OpponentComputer
}

const (
	DarkThemeClass  = "dark-theme"
	LightThemeClass = "light-theme"
)

type Theme struct {
	DarkMode bool `json:"dark_mode"`
}

// Class is the visual class applied to the whole page.
func (that Theme) Class() string {
	if that.DarkMode {
		return DarkThemeClass
	}
	return LightThemeClass
}

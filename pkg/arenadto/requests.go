package arenadto

import "strings"

// PlayerConfig configures one automated player.
type PlayerConfig struct {
	ModelName   string `json:"model_name"`
	APIKey      string `json:"api_key"`
	DisplayName string `json:"display_name"`
	BaseURL     string `json:"base_url,omitempty"`
}

// Validate reports the first empty required field.
func (c PlayerConfig) Validate(side string) error {
	switch {
	case strings.TrimSpace(c.ModelName) == "":
		return &ConfigValidationError{Side: side, Field: "model_name"}
	case strings.TrimSpace(c.APIKey) == "":
		return &ConfigValidationError{Side: side, Field: "api_key"}
	case strings.TrimSpace(c.DisplayName) == "":
		return &ConfigValidationError{Side: side, Field: "display_name"}
	}
	return nil
}

// StartBattleRequest is the start_battle payload.
type StartBattleRequest struct {
	Red   PlayerConfig `json:"red_player"`
	Black PlayerConfig `json:"black_player"`
}

func (r StartBattleRequest) Validate() error {
	if err := r.Red.Validate("red"); err != nil {
		return err
	}
	return r.Black.Validate("black")
}

// Normalized trims every field; base_url stays empty when blank.
func (r StartBattleRequest) Normalized() StartBattleRequest {
	trim := func(c PlayerConfig) PlayerConfig {
		return PlayerConfig{
			ModelName:   strings.TrimSpace(c.ModelName),
			APIKey:      strings.TrimSpace(c.APIKey),
			DisplayName: strings.TrimSpace(c.DisplayName),
			BaseURL:     strings.TrimSpace(c.BaseURL),
		}
	}
	return StartBattleRequest{Red: trim(r.Red), Black: trim(r.Black)}
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ControlResult is the orchestrator's status discriminant for start/stop.
type ControlResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r ControlResult) OK() bool { return r.Status == StatusSuccess }

const (
	BattleNone   = "no_battle"
	BattleActive = "active"
)

// BattleStatus is the get_battle_status reply.
type BattleStatus struct {
	Status        string `json:"status"`
	BoardState    string `json:"board_state,omitempty"`
	MoveCount     int    `json:"move_count,omitempty"`
	CurrentPlayer string `json:"current_player,omitempty"`
	IsGameOver    bool   `json:"is_game_over,omitempty"`
}

func (s BattleStatus) Active() bool { return s.Status == BattleActive }

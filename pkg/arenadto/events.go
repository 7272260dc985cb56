package arenadto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event names as emitted by the orchestrator.
const (
	EventThinking       = "thinking"
	EventThinkingStream = "thinking_stream"
	EventMoveMade       = "move_made"
	EventGameOver       = "game_over"
	EventGameError      = "game_error"
)

// Envelope is a single websocket frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event is one of the typed variants below.
type Event interface {
	EventName() string
}

type ThinkingEvent struct {
	Side    string `json:"side,omitempty"`
	Player  string `json:"player"`
	Message string `json:"message"`
}

type ThinkingStreamEvent struct {
	Side       string `json:"side,omitempty"`
	Player     string `json:"player"`
	Content    string `json:"content"`
	IsComplete bool   `json:"is_complete"`
}

// HistoryItem is one entry of the orchestrator's recent-move window.
type HistoryItem struct {
	Player string `json:"player"`
	Move   string `json:"move"`
}

type MoveMadeEvent struct {
	Side        string        `json:"side,omitempty"`
	Player      string        `json:"player"`
	PlayerColor string        `json:"player_color,omitempty"` // side to move next
	Move        string        `json:"move"`
	BoardState  string        `json:"board_state"`
	MoveCount   int           `json:"move_count"`
	History     []HistoryItem `json:"history,omitempty"`
	Thinking    string        `json:"thinking,omitempty"`
	IsGameOver  bool          `json:"is_game_over,omitempty"`
}

type GameOverEvent struct {
	Result     string `json:"result"`
	TotalMoves int    `json:"total_moves"`
}

// UnmarshalJSON accepts result either as text or as the orchestrator's result object.
func (e *GameOverEvent) UnmarshalJSON(b []byte) error {
	var raw struct {
		Result     json.RawMessage `json:"result"`
		TotalMoves int             `json:"total_moves"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.TotalMoves = raw.TotalMoves
	e.Result = ""
	if len(raw.Result) == 0 || string(raw.Result) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw.Result, &text); err == nil {
		e.Result = text
		return nil
	}
	var obj struct {
		Message    string `json:"message"`
		GameResult string `json:"game_result"`
	}
	if err := json.Unmarshal(raw.Result, &obj); err != nil {
		return fmt.Errorf("game_over result: %w", err)
	}
	e.Result = strings.TrimSpace(obj.Message)
	if e.Result == "" {
		e.Result = strings.TrimSpace(obj.GameResult)
	}
	return nil
}

type GameErrorEvent struct {
	Message string `json:"message"`
}

func (ThinkingEvent) EventName() string       { return EventThinking }
func (ThinkingStreamEvent) EventName() string { return EventThinkingStream }
func (MoveMadeEvent) EventName() string       { return EventMoveMade }
func (GameOverEvent) EventName() string       { return EventGameOver }
func (GameErrorEvent) EventName() string      { return EventGameError }

// Decode turns an envelope into its typed event.
func Decode(env Envelope) (Event, error) {
	name := strings.TrimSpace(env.Event)
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	switch name {
	case EventThinking:
		var ev ThinkingEvent
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventThinkingStream:
		var ev ThinkingStreamEvent
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventMoveMade:
		var ev MoveMadeEvent
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventGameOver:
		var ev GameOverEvent
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventGameError:
		var ev GameErrorEvent
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func decodeInto(name string, data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

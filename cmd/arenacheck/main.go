package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/xiangqi-arena-viewer/internal/arenafast"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

func main() {
	baseURL := os.Getenv("ARENA_BASE_URL")
	wsURL := os.Getenv("ARENA_WS_URL")
	userID := os.Getenv("X_USER_ID")
	sessionID := os.Getenv("X_SESSION_ID")

	if baseURL == "" {
		log.Fatal("ARENA_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		if sessionID != "" {
			m["X-Session-Id"] = sessionID
		}
		return m
	}

	client := arenafast.NewClient(baseURL,
		arenafast.WithHeaderProvider(headers),
		arenafast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := client.Status(ctx)
	if err != nil {
		log.Printf("get_battle_status error: %v", err)
	} else {
		log.Printf("get_battle_status ok: status=%s moves=%d current=%s over=%v", st.Status, st.MoveCount, st.CurrentPlayer, st.IsGameOver)
	}

	if wsURL == "" {
		log.Println("ARENA_WS_URL not set; skipping stream check")
		return
	}

	ws := arenafast.NewEventStream(wsURL, 0, time.Second)
	ws.SetHeaderProvider(headers)
	stateID := ws.OnStateChange(func(state arenafast.WebSocketState) {
		log.Printf("stream state: %s", state)
	})
	eventID := ws.OnEvent(func(ev arenadto.Event) {
		switch e := ev.(type) {
		case arenadto.ThinkingStreamEvent:
			fmt.Printf("%s player=%s complete=%v len=%d\n", e.EventName(), e.Player, e.IsComplete, len(e.Content))
		case arenadto.MoveMadeEvent:
			fmt.Printf("%s player=%s move=%s count=%d next=%s\n", e.EventName(), e.Player, e.Move, e.MoveCount, e.PlayerColor)
		default:
			fmt.Printf("%s %+v\n", ev.EventName(), ev)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("stream connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C
	ws.RemoveEventCallback(eventID)
	ws.RemoveStateCallback(stateID)
	_ = ws.Close(context.Background())
}

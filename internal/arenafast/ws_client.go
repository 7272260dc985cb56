package arenafast

import (
	"context"

	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

type EventCallback func(ev arenadto.Event)

type StateCallback func(state WebSocketState)

// Stream is the inbound side of the orchestrator connection.
type Stream interface {
	Connect(ctx context.Context) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	LastError() error
	Close(ctx context.Context) error
}

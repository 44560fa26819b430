package handler

import (
	"github.com/skagen/thronehex/internal/machine"
	"github.com/skagen/thronehex/internal/manager"
)

// BindManager wires manager notifications into the WebSocket hub: every
// persisted transition is fanned out to the game's subscribers, and AI
// moves are announced separately so clients can animate them.
func BindManager(hub *Hub, m *manager.Manager) {
	m.OnTransition(func(gameID string, tr machine.Transition) {
		for _, ev := range tr.Events {
			hub.BroadcastToGame(gameID, WSEvent{Type: string(ev.Type), GameID: gameID, Data: ev})
		}
		if tr.From != tr.To {
			hub.BroadcastToGame(gameID, WSEvent{
				Type:   "state_changed",
				GameID: gameID,
				Data:   map[string]string{"from": string(tr.From), "to": string(tr.To)},
			})
		}
	})

	m.OnAIMove(func(gameID, playerID string, result manager.MoveResult) {
		hub.BroadcastToGame(gameID, WSEvent{
			Type:   EventAIMove,
			GameID: gameID,
			Data:   map[string]any{"player_id": playerID, "result": result},
		})
	})
}

package collab

import (
	"log/slog"
	"sync"
)

type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// ClearHover drops hover markers that point at a step no longer in either
// stack, e.g. after a reset.
func (pm *PresenceManager) ClearHover(live map[string]bool) []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var cleared []string
	for clientID, p := range pm.presences {
		if p.HoveredStep != "" && !live[p.HoveredStep] {
			cp := *p
			cp.HoveredStep = ""
			pm.presences[clientID] = &cp
			cleared = append(cleared, clientID)
		}
	}
	return cleared
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}

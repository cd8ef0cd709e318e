package chat

import (
	"fmt"

	"roomchat/internal/pkg/errs"
)

// maxSweepPasses bounds how often a sweep rescans the Registry for rooms that
// still list the socket.
const maxSweepPasses = 3

// SweepResult reports the outcome of RemoveFromAllRooms.
type SweepResult struct {
	// Left holds one entry per room the socket was removed from.
	Left []LeaveResult

	// Failed maps room names to the error that prevented cleanup there.
	Failed map[string]error
}

// RemoveFromAllRooms removes socketID from every room it belongs to, applying
// the same host promotion and empty-room removal as Leave. Each room is handled
// in its own exclusive section; a failure in one room is logged and recorded
// without stopping the rest of the sweep. Sweeping a socket that is in no room
// is a no-op.
func (m *Manager) RemoveFromAllRooms(socketID string) SweepResult {
	return m.sweep(socketID, m.Leave)
}

// leaveFunc removes one socket from one room.
type leaveFunc func(roomName, socketID string) (LeaveResult, error)

func (m *Manager) sweep(socketID string, leave leaveFunc) SweepResult {
	result := SweepResult{Failed: make(map[string]error)}
	if socketID == "" {
		return result
	}

	for pass := 0; pass < maxSweepPasses; pass++ {
		names := m.registry.roomsWith(socketID)
		if len(names) == 0 {
			break
		}

		progressed := false
		for _, name := range names {
			left, err := sweepRoom(leave, name, socketID)
			if err != nil {
				if errs.HasCode(err, errs.ErrRoomNotFound) || errs.HasCode(err, errs.ErrMemberNotFound) {
					// Already gone through a concurrent leave.
					delete(result.Failed, name)
					continue
				}

				result.Failed[name] = err
				m.logger.Error().
					Err(err).
					Str("room_name", name).
					Str("socket_id", socketID).
					Int("pass", pass).
					Msg("Failed to remove socket from room during sweep.")
				continue
			}

			delete(result.Failed, name)
			result.Left = append(result.Left, left)
			progressed = true
		}

		if !progressed {
			break
		}
	}

	m.logger.Debug().
		Str("socket_id", socketID).
		Int("rooms_left", len(result.Left)).
		Int("rooms_failed", len(result.Failed)).
		Msg("Disconnect sweep finished.")

	return result
}

// sweepRoom runs leave for one room, turning a panic into an error so the
// remaining rooms are still processed.
func sweepRoom(leave leaveFunc, name, socketID string) (left LeaveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sweeping room %q: %v", name, r)
		}
	}()

	return leave(name, socketID)
}

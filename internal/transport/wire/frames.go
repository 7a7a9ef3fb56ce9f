// Package wire defines the JSON frames exchanged over a room websocket
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/cardroom/internal/model"
)

// FrameType discriminates websocket frames
type FrameType string

const (
	// FrameAction is sent by clients to dispatch an action
	FrameAction FrameType = "action"
	// FrameState carries a full state snapshot to a client
	FrameState FrameType = "state"
	// FrameResult answers one action frame
	FrameResult FrameType = "result"
	// FrameError reports a fatal connection error; the server closes afterwards
	FrameError FrameType = "error"
)

// Frame is a single websocket message in either direction
type Frame struct {
	Type      FrameType            `json:"type"`
	RequestID string               `json:"request_id,omitempty"`
	Action    model.ActionName     `json:"action,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
	State     *model.StateSnapshot `json:"state,omitempty"`
	OK        bool                 `json:"ok,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// ActionFrame builds the frame for an outbound action
func ActionFrame(requestID string, action model.Action) (Frame, error) {
	f := Frame{
		Type:      FrameAction,
		RequestID: requestID,
		Action:    action.Name,
	}
	if action.Payload != nil {
		payload, err := json.Marshal(action.Payload)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s payload: %w", action.Name, err)
		}
		f.Payload = payload
	}
	return f, nil
}

// DecodeAction converts an action frame back into a typed action
func DecodeAction(f Frame) (model.Action, error) {
	action := model.Action{Name: f.Action}

	switch f.Action {
	case model.ActionJoin, model.ActionStartGame, model.ActionDrawCard, model.ActionEndGame:
		return action, nil
	case model.ActionPlayCard:
		var p model.PlayCardPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return model.Action{}, fmt.Errorf("decode play_card payload: %w", err)
		}
		action.Payload = p
		return action, nil
	default:
		return model.Action{}, fmt.Errorf("%w: %q", model.ErrUnknownAction, f.Action)
	}
}

// StateFrame wraps a snapshot
func StateFrame(s *model.StateSnapshot) Frame {
	return Frame{Type: FrameState, State: s}
}

// ResultFrame answers the action with the given request id
func ResultFrame(requestID string, r model.Result) Frame {
	return Frame{
		Type:      FrameResult,
		RequestID: requestID,
		OK:        r.OK,
		Message:   r.Message,
	}
}

// ErrorFrame reports a fatal error
func ErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Message: message}
}

// Result extracts the result carried by a result frame
func (f Frame) Result() model.Result {
	return model.Result{OK: f.OK, Message: f.Message}
}

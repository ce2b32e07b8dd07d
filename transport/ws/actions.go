package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"msgboard/domain"
	apperrors "msgboard/errors"
)

// Action names are part of the client protocol.
const (
	ActionWhoami      = "whoami"
	ActionList        = "list"
	ActionSubscribe   = "subscribe_to_message_activity"
	ActionUnsubscribe = "unsubscribe_to_message_activity"
	ActionSendMessage = "send_message"
)

// Request is the inbound envelope. RequestID is an opaque correlation
// token echoed back verbatim in the direct reply; broadcasts never
// carry one.
type Request struct {
	Action    string          `json:"action"`
	RequestID json.RawMessage `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type errorResponse struct {
	Errors    []string        `json:"errors"`
	RequestID json.RawMessage `json:"request_id,omitempty"`
}

type whoamiResponse struct {
	Action          string          `json:"action"`
	IsAuthenticated bool            `json:"is_authenticated"`
	Username        *string         `json:"username"`
	RequestID       json.RawMessage `json:"request_id,omitempty"`
}

type listResponse struct {
	Action    string           `json:"action"`
	Data      []domain.Payload `json:"data"`
	RequestID json.RawMessage  `json:"request_id,omitempty"`
}

type ackResponse struct {
	Action    string          `json:"action"`
	Status    string          `json:"status"`
	RequestID json.RawMessage `json:"request_id,omitempty"`
}

type messageResponse struct {
	domain.Payload
	RequestID json.RawMessage `json:"request_id,omitempty"`
}

type sendMessageData struct {
	Text string `json:"text"`
}

// handle processes one inbound frame. Every failure path ends in a
// structured error reply on this connection; nothing here may close or
// corrupt the socket.
func (s *Session) handle(data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(errorResponse{Errors: []string{fmt.Sprintf("malformed request: %v", err)}})
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.reply(errorResponse{
			Errors:    []string{apperrors.ErrRateLimited.Error()},
			RequestID: req.RequestID,
		})
		return
	}

	s.reply(s.dispatch(req))
}

// dispatch routes the request to its action handler. A panicking
// handler is converted into an error response; the connection survives.
func (s *Session) dispatch(req Request) (resp any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("action handler panic", "action", req.Action, "conn_id", s.id, "panic", r)
			resp = errorResponse{
				Errors:    []string{fmt.Sprintf("%s error: internal failure", req.Action)},
				RequestID: req.RequestID,
			}
		}
	}()

	switch req.Action {
	case ActionWhoami:
		return s.whoami(req)
	case ActionList:
		return s.list(req)
	case ActionSubscribe:
		return s.subscribe(req)
	case ActionUnsubscribe:
		return s.unsubscribe(req)
	case ActionSendMessage:
		return s.sendMessage(req)
	default:
		return errorResponse{
			Errors:    []string{fmt.Sprintf("%s: %q", apperrors.ErrUnknownAction, req.Action)},
			RequestID: req.RequestID,
		}
	}
}

func (s *Session) whoami(req Request) any {
	resp := whoamiResponse{Action: ActionWhoami, RequestID: req.RequestID}
	if s.identity != nil {
		resp.IsAuthenticated = true
		resp.Username = &s.identity.Username
	}
	return resp
}

func (s *Session) list(req Request) any {
	payloads, err := s.board.Messages()
	if err != nil {
		return s.actionError(ActionList, req, err)
	}
	if payloads == nil {
		payloads = []domain.Payload{}
	}
	return listResponse{Action: ActionList, Data: payloads, RequestID: req.RequestID}
}

func (s *Session) subscribe(req Request) any {
	s.registry.Subscribe(s.id, domain.ResourceMessage, s)
	if _, ok := s.subscribed[domain.ResourceMessage]; !ok {
		s.subscribed[domain.ResourceMessage] = struct{}{}
		s.metrics.Subscriptions.Inc()
	}
	return ackResponse{Action: ActionSubscribe, Status: "subscribed", RequestID: req.RequestID}
}

func (s *Session) unsubscribe(req Request) any {
	s.registry.Unsubscribe(s.id, domain.ResourceMessage)
	if _, ok := s.subscribed[domain.ResourceMessage]; ok {
		delete(s.subscribed, domain.ResourceMessage)
		s.metrics.Subscriptions.Dec()
	}
	return ackResponse{Action: ActionUnsubscribe, Status: "unsubscribed", RequestID: req.RequestID}
}

func (s *Session) sendMessage(req Request) any {
	if s.identity == nil {
		return errorResponse{
			Errors:    []string{"Authentication required"},
			RequestID: req.RequestID,
		}
	}

	var data sendMessageData
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return s.actionError(ActionSendMessage, req, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		}
	}

	payload, err := s.board.Post(*s.identity, data.Text)
	if err != nil {
		return s.actionError(ActionSendMessage, req, err)
	}
	// The creation broadcast reaches this client through its
	// subscription, if any; the direct reply is only the ack.
	return messageResponse{Payload: payload, RequestID: req.RequestID}
}

// actionError maps a failure to the original wire shape and hides
// internals unless the error belongs to the public taxonomy.
func (s *Session) actionError(action string, req Request, err error) errorResponse {
	msg := fmt.Sprintf("%s error: internal failure", action)
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrAuthRequired),
		errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrNotFound):
		msg = fmt.Sprintf("%s error: %v", action, err)
	default:
		s.log.Error("action failed", "action", action, "conn_id", s.id, "error", err)
	}
	return errorResponse{Errors: []string{msg}, RequestID: req.RequestID}
}

func (s *Session) reply(resp any) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "conn_id", s.id, "error", err)
		return
	}
	s.send(payload)
}

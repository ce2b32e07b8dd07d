// Package services exposes the application's use cases to the
// transports. The services stay thin: policy lives in the stores, the
// services translate between stored entities and wire projections.
package services

import (
	"github.com/samber/lo"

	"msgboard/contract"
	"msgboard/domain"
)

type BoardService struct {
	messages contract.IMessageStore
}

func NewBoardService(messages contract.IMessageStore) *BoardService {
	return &BoardService{messages: messages}
}

// Messages lists the board in descending creation order.
func (s *BoardService) Messages() ([]domain.Payload, error) {
	messages, err := s.messages.List()
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(msg domain.Message, _ int) domain.Payload {
		return msg.Public()
	}), nil
}

// Post creates a message attributed to the actor. The creation event
// reaches subscribers through the broadcast path only; the returned
// payload is the direct reply to the caller.
func (s *BoardService) Post(actor domain.Identity, text string) (domain.Payload, error) {
	msg, err := s.messages.Create(actor, text)
	if err != nil {
		return domain.Payload{}, err
	}
	return msg.Public(), nil
}

// Edit updates the text of the actor's own message.
func (s *BoardService) Edit(actor domain.Identity, id int64, text string) (domain.Payload, error) {
	msg, err := s.messages.Update(actor, id, text)
	if err != nil {
		return domain.Payload{}, err
	}
	return msg.Public(), nil
}

// Remove deletes the actor's own message.
func (s *BoardService) Remove(actor domain.Identity, id int64) error {
	return s.messages.Delete(actor, id)
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"msgboard/domain"
	apperrors "msgboard/errors"
	"msgboard/mocks"
)

func TestBoardService_Messages_Projects_Public_Fields(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	now := time.Now().UTC()

	store.EXPECT().List().Return([]domain.Message{
		{ID: 2, UserID: 1, Username: "alice", Text: "second", CreatedAt: now},
		{ID: 1, UserID: 1, Username: "alice", Text: "first", CreatedAt: now.Add(-time.Minute)},
	}, nil)

	board := NewBoardService(store)
	payloads, err := board.Messages()

	req.NoError(err)
	req.Equal([]domain.Payload{
		{ID: 2, Username: "alice", UserID: 1, Text: "second", CreatedAt: now},
		{ID: 1, Username: "alice", UserID: 1, Text: "first", CreatedAt: now.Add(-time.Minute)},
	}, payloads)
}

func TestBoardService_Post(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	actor := domain.Identity{ID: 1, Username: "alice"}
	now := time.Now().UTC()

	store.EXPECT().
		Create(actor, "hi").
		Return(domain.Message{ID: 3, UserID: 1, Username: "alice", Text: "hi", CreatedAt: now}, nil)

	board := NewBoardService(store)
	payload, err := board.Post(actor, "hi")

	req.NoError(err)
	req.Equal(int64(3), payload.ID)
	req.Equal("alice", payload.Username)
}

func TestBoardService_Post_Propagates_Store_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	actor := domain.Identity{ID: 1, Username: "alice"}

	store.EXPECT().Create(actor, "").Return(domain.Message{}, apperrors.ErrEmptyText)

	board := NewBoardService(store)
	_, err := board.Post(actor, "")

	req.ErrorIs(err, apperrors.ErrValidation)
}

func TestBoardService_Edit_And_Remove_Delegate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	actor := domain.Identity{ID: 1, Username: "alice"}

	store.EXPECT().
		Update(actor, int64(4), "edited").
		Return(domain.Message{ID: 4, UserID: 1, Username: "alice", Text: "edited"}, nil)
	store.EXPECT().Delete(actor, int64(4)).Return(nil)

	board := NewBoardService(store)

	payload, err := board.Edit(actor, 4, "edited")
	req.NoError(err)
	req.Equal("edited", payload.Text)

	req.NoError(board.Remove(actor, 4))
}

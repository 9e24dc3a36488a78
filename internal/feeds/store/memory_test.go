package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feedlog/internal/feeds/models"
	"feedlog/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) item(seqno uint64) *models.StoredItem {
	return &models.StoredItem{
		Issuer:      "example.com",
		Subject:     "item_a",
		Seqno:       seqno,
		ContentHash: "hash",
		Envelope:    []byte("a.b.c"),
		SubmittedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *InMemoryStoreSuite) TestItemsAreWriteOnce() {
	s.Require().NoError(s.store.PutItem(s.ctx, s.item(1)))

	dup := s.item(1)
	dup.ContentHash = "other"
	s.ErrorIs(s.store.PutItem(s.ctx, dup), sentinel.ErrAlreadyUsed)

	got, err := s.store.Item(s.ctx, "example.com|item_a", 1)
	s.Require().NoError(err)
	s.Equal("hash", got.ContentHash)
}

func (s *InMemoryStoreSuite) TestLatestFollowsSeqnoRecord() {
	_, err := s.store.Latest(s.ctx, "example.com|item_a")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.PutItem(s.ctx, s.item(1)))
	_, err = s.store.Latest(s.ctx, "example.com|item_a")
	s.ErrorIs(err, sentinel.ErrNotFound, "item is not visible until the seqno record moves")

	s.Require().NoError(s.store.SetSeqno(s.ctx, "example.com|item_a", 1))
	got, err := s.store.Latest(s.ctx, "example.com|item_a")
	s.Require().NoError(err)
	s.EqualValues(1, got.Seqno)
}

func (s *InMemoryStoreSuite) TestReturnedItemsAreCopies() {
	s.Require().NoError(s.store.PutItem(s.ctx, s.item(1)))

	got, err := s.store.Item(s.ctx, "example.com|item_a", 1)
	s.Require().NoError(err)
	got.Envelope[0] = 'x'
	got.ContentHash = "mutated"

	again, err := s.store.Item(s.ctx, "example.com|item_a", 1)
	s.Require().NoError(err)
	s.Equal("hash", again.ContentHash)
	s.Equal([]byte("a.b.c"), again.Envelope)
}

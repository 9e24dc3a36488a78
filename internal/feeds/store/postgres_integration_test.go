//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feedlog/internal/feeds/models"
	"feedlog/pkg/platform/sentinel"
	"feedlog/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "feed_items", "feed_seqnos"))
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	feed := models.FeedName("example.com", "item_a")

	last, err := s.store.LastSeqno(ctx, feed)
	s.Require().NoError(err)
	s.Zero(last)

	item := &models.StoredItem{
		Issuer:      "example.com",
		Subject:     "item_a",
		Seqno:       1,
		ContentHash: "abc",
		SubmittedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.PutItem(ctx, item))
	s.Require().NoError(s.store.SetSeqno(ctx, feed, 1))

	s.ErrorIs(s.store.PutItem(ctx, item), sentinel.ErrAlreadyUsed)

	latest, err := s.store.Latest(ctx, feed)
	s.Require().NoError(err)
	s.EqualValues(1, latest.Seqno)
	s.Equal("abc", latest.ContentHash)
	s.Nil(latest.Envelope)
	s.True(item.SubmittedAt.Equal(latest.SubmittedAt))

	_, err = s.store.Item(ctx, feed, 2)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestItemsCannotBeRewritten() {
	ctx := context.Background()
	item := &models.StoredItem{Issuer: "example.com", Subject: "item_a", Seqno: 1, ContentHash: "abc", SubmittedAt: time.Now()}
	s.Require().NoError(s.store.PutItem(ctx, item))

	_, err := s.pg.DB.ExecContext(ctx, `UPDATE feed_items SET content_hash = 'evil' WHERE seqno = 1`)
	s.Error(err)
	_, err = s.pg.DB.ExecContext(ctx, `DELETE FROM feed_items WHERE seqno = 1`)
	s.Error(err)
}

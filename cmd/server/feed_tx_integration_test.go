//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	feedsservice "feedlog/internal/feeds/service"
	feedsstore "feedlog/internal/feeds/store"
	"feedlog/internal/keyregistry"
	nsservice "feedlog/internal/namespace/service"
	nsstore "feedlog/internal/namespace/store"
	"feedlog/internal/verifier"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/testutil"
	"feedlog/pkg/testutil/containers"
)

type FeedTxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	feeds *feedsservice.Service
}

func TestFeedTxSuite(t *testing.T) {
	suite.Run(t, new(FeedTxSuite))
}

func (s *FeedTxSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
}

func (s *FeedTxSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateTables(ctx, "feed_items", "feed_seqnos", "namespaces"))

	namespaces := nsservice.New(nsstore.NewPostgres(s.pg.DB))
	_, _, err := namespaces.RegisterOrUpdate(ctx, nsservice.RegisterRequest{Issuer: "example.com", TrustPolicy: "tlsCert"})
	s.Require().NoError(err)

	store := feedsstore.NewPostgres(s.pg.DB)
	s.feeds = feedsservice.New(store, namespaces, verifier.New(keyregistry.NewPostgres(s.pg.DB)),
		feedsservice.WithTx(newFeedPostgresTx(s.pg.DB, store, 10*time.Second)),
	)
}

// Concurrent writers to one feed either commit with a unique seqno or get a
// retryable conflict; retried until all commit, the seqnos are exactly 1..n.
func (s *FeedTxSuite) TestConcurrentSubmissionsStayDense() {
	const n = 20
	signer := testutil.NewSigningIdentity(s.T(), "example.com")
	envelopes := make([][]byte, n)
	for i := range envelopes {
		envelopes[i] = []byte(signer.SignWithCert(s.T(), jwt.MapClaims{"iss": "example.com", "sub": "item_a", "n": i}))
	}

	seqnos := make([]uint64, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			for {
				receipt, err := s.feeds.Submit(context.Background(), feedsservice.SubmitRequest{Envelope: envelopes[i]})
				if err != nil && dErrors.Retryable(err) {
					continue
				}
				if err != nil {
					return err
				}
				seqnos[i] = receipt.Seqno
				return nil
			}
		})
	}
	s.Require().NoError(g.Wait())

	seen := make(map[uint64]bool, n)
	for _, seqno := range seqnos {
		s.False(seen[seqno], "seqno %d assigned twice", seqno)
		seen[seqno] = true
	}
	for want := uint64(1); want <= n; want++ {
		s.True(seen[want], "seqno %d missing", want)
	}

	latest, err := s.feeds.Latest(context.Background(), "example.com", "item_a")
	s.Require().NoError(err)
	s.EqualValues(n, latest.Seqno)
}

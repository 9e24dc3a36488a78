//go:build integration

package keyregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"feedlog/pkg/platform/sentinel"
	"feedlog/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	reg *Postgres
}

func TestPostgresRegistrySuite(t *testing.T) {
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.reg = NewPostgres(s.pg.DB)
}

func (s *PostgresRegistrySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "signing_keys"))
}

func (s *PostgresRegistrySuite) TestReplaceIssuerKeysPrunesRotatedKids() {
	ctx := context.Background()
	issuer := "https://example.com"

	s.Require().NoError(s.reg.ReplaceIssuerKeys(ctx, issuer, []Key{
		{KID: "k1", Issuer: issuer, DER: []byte{1}},
		{KID: "k2", Issuer: issuer, DER: []byte{2}},
	}))
	s.Require().NoError(s.reg.ReplaceIssuerKeys(ctx, "https://other.example", []Key{
		{KID: "o1", Issuer: "https://other.example", DER: []byte{9}},
	}))

	s.Require().NoError(s.reg.ReplaceIssuerKeys(ctx, issuer, []Key{
		{KID: "k2", Issuer: issuer, DER: []byte{22}},
	}))

	_, err := s.reg.PublicKey(ctx, "k1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	der, err := s.reg.PublicKey(ctx, "k2")
	s.Require().NoError(err)
	s.Equal([]byte{22}, der)

	got, err := s.reg.TrustedIssuer(ctx, "o1")
	s.Require().NoError(err)
	s.Equal("https://other.example", got)

	keys, err := s.reg.List(ctx)
	s.Require().NoError(err)
	s.Len(keys, 2)
}

func (s *PostgresRegistrySuite) TestEmptySetRemovesIssuer() {
	ctx := context.Background()
	s.Require().NoError(s.reg.ReplaceIssuerKeys(ctx, "https://gone.example", []Key{
		{KID: "g1", Issuer: "https://gone.example", DER: []byte{1}},
	}))
	s.Require().NoError(s.reg.ReplaceIssuerKeys(ctx, "https://gone.example", nil))

	_, err := s.reg.TrustedIssuer(ctx, "g1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

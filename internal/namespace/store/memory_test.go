package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feedlog/internal/namespace/models"
	"feedlog/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newNamespace(issuer string, policy models.PolicyKind, at time.Time) *models.Namespace {
	ns, err := models.NewNamespace(issuer, policy, models.Permissions{}, at)
	s.Require().NoError(err)
	return ns
}

func (s *InMemoryStoreSuite) TestUpsertReportsCreation() {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	created, err := s.store.Upsert(s.ctx, s.newNamespace("example.com", models.PolicyTLSCert, first), models.ExpectAbsent())
	s.Require().NoError(err)
	s.True(created)

	second := first.Add(time.Hour)
	update := s.newNamespace("example.com", models.PolicyJWKS, second)
	created, err = s.store.Upsert(s.ctx, update, models.ExpectOwner(""))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first, update.CreatedAt, "update keeps the original creation time")

	found, err := s.store.FindByIssuer(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(models.PolicyJWKS, found.TrustPolicy)
	s.Equal(first, found.CreatedAt)
	s.Equal(second, found.UpdatedAt)
}

func (s *InMemoryStoreSuite) TestPreconditionFailuresWriteNothing() {
	ns, err := models.NewNamespace("example.com", models.PolicyTLSCert, models.Permissions{OwnerHash: "h1"}, time.Now())
	s.Require().NoError(err)
	_, err = s.store.Upsert(s.ctx, ns, nil)
	s.Require().NoError(err)

	_, err = s.store.Upsert(s.ctx, s.newNamespace("example.com", models.PolicyJWKS, time.Now()), models.ExpectAbsent())
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Upsert(s.ctx, s.newNamespace("example.com", models.PolicyJWKS, time.Now()), models.ExpectOwner("h0"))
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Upsert(s.ctx, s.newNamespace("other.example", models.PolicyJWKS, time.Now()), models.ExpectOwner(""))
	s.ErrorIs(err, sentinel.ErrConflict, "an update needs an existing record")

	found, err := s.store.FindByIssuer(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(models.PolicyTLSCert, found.TrustPolicy)
	s.Equal("h1", found.Permissions.OwnerHash)
}

func (s *InMemoryStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByIssuer(s.ctx, "missing.example")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReturnedRecordIsACopy() {
	_, err := s.store.Upsert(s.ctx, s.newNamespace("example.com", models.PolicyTLSCert, time.Now()), nil)
	s.Require().NoError(err)

	found, err := s.store.FindByIssuer(s.ctx, "example.com")
	s.Require().NoError(err)
	found.TrustPolicy = models.PolicyJWKS

	again, err := s.store.FindByIssuer(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(models.PolicyTLSCert, again.TrustPolicy)
}

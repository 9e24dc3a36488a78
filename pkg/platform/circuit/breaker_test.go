package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	b *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.b = New("namespace-cache", WithFailureThreshold(2), WithSuccessThreshold(2))
}

func (s *BreakerSuite) trip() {
	s.b.RecordFailure()
	_, change := s.b.RecordFailure()
	s.Require().True(change.Opened)
}

func (s *BreakerSuite) TestStartsClosed() {
	s.Equal("namespace-cache", s.b.Name())
	s.Equal(StateClosed, s.b.State())
	s.Equal("closed", s.b.State().String())
}

func (s *BreakerSuite) TestOpensOnConsecutiveFailures() {
	useFallback, change := s.b.RecordFailure()
	s.False(useFallback)
	s.False(change.Opened)

	useFallback, change = s.b.RecordFailure()
	s.True(useFallback)
	s.True(change.Opened)
	s.True(s.b.IsOpen())

	// further failures keep it open without reporting a new transition
	useFallback, change = s.b.RecordFailure()
	s.True(useFallback)
	s.Equal(StateChange{}, change)
}

func (s *BreakerSuite) TestSuccessInterruptsFailureStreak() {
	s.b.RecordFailure()
	usePrimary, _ := s.b.RecordSuccess()
	s.True(usePrimary)

	_, change := s.b.RecordFailure()
	s.False(change.Opened)
	s.False(s.b.IsOpen())
}

func (s *BreakerSuite) TestClosesAfterRecoveryStreak() {
	s.trip()

	usePrimary, change := s.b.RecordSuccess()
	s.False(usePrimary, "open breaker keeps serving the fallback")
	s.False(change.Closed)

	usePrimary, change = s.b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.Equal(StateClosed, s.b.State())
}

func (s *BreakerSuite) TestFailureRestartsRecoveryStreak() {
	s.trip()
	s.b.RecordSuccess()
	s.b.RecordFailure()

	_, change := s.b.RecordSuccess()
	s.False(change.Closed)
	s.True(s.b.IsOpen())
}

func (s *BreakerSuite) TestReset() {
	s.trip()
	s.b.Reset()
	s.False(s.b.IsOpen())
}

func TestNewIgnoresNonPositiveThresholds(t *testing.T) {
	b := New("x", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

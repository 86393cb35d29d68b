package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func TestProm_CountsByLabel(t *testing.T) {
	p := New(prometheus.NewRegistry())

	p.LobbyCreated("g")
	p.LobbyCreated("g")
	p.MatchStarted("g", true)
	p.MatchStarted("g", false)
	p.VoteResolved("g", "deadline")
	p.RatingApplied(domain.OutcomeWin)
	p.CollaboratorFailure("notifier")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.lobbiesCreated.WithLabelValues("g")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.matchesStarted.WithLabelValues("g", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.votesResolved.WithLabelValues("g", "deadline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ratings.WithLabelValues("win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.failures.WithLabelValues("notifier")))

	families, err := p.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

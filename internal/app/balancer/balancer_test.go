package balancer

import (
	"fmt"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func sameSide(res Result, members []string) bool {
	inA := 0
	for _, m := range members {
		for _, a := range res.TeamA {
			if a == m {
				inA++
			}
		}
	}
	return inA == 0 || inA == len(members)
}

func expectValidSplit(g *WithT, players []string, res Result) {
	g.Expect(res.TeamA).To(HaveLen(domain.TeamSize))
	g.Expect(res.TeamB).To(HaveLen(domain.TeamSize))
	for _, a := range res.TeamA {
		g.Expect(res.TeamB).NotTo(ContainElement(a))
	}
	all := append(append([]string{}, res.TeamA...), res.TeamB...)
	g.Expect(all).To(ConsistOf(players))
}

func TestBalance_RejectsWrongSize(t *testing.T) {
	_, err := Balance(ids("p", 9), nil, testsetup.NewRand(1))
	require.ErrorIs(t, err, domain.ErrNotEnoughPlayers)
}

func TestBalance_Scenarios(t *testing.T) {
	cases := []struct {
		name      string
		parties   func(players []string) [][]string
		wholeSize []int // tamaños de party que deben quedar enteras
	}{
		{
			name:    "solos only",
			parties: func([]string) [][]string { return nil },
		},
		{
			name:      "party of four plus one plus five solos",
			parties:   func(p []string) [][]string { return [][]string{p[0:4], p[4:5]} },
			wholeSize: []int{4},
		},
		{
			name:      "two parties of five",
			parties:   func(p []string) [][]string { return [][]string{p[0:5], p[5:10]} },
			wholeSize: []int{5, 5},
		},
		{
			name:      "two parties of four",
			parties:   func(p []string) [][]string { return [][]string{p[0:4], p[4:8]} },
			wholeSize: []int{4, 4},
		},
		{
			name:      "party of three and pairs",
			parties:   func(p []string) [][]string { return [][]string{p[0:3], p[3:5], p[5:7]} },
			wholeSize: []int{3},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := testsetup.WithGomega(t)
			for seed := uint64(0); seed < 50; seed++ {
				players := ids("p", 10)
				parties := c.parties(players)
				res, err := Balance(players, parties, testsetup.NewRand(seed))
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(res.Fallback).To(BeFalse())
				expectValidSplit(g, players, res)
				for i, size := range c.wholeSize {
					g.Expect(parties[i]).To(HaveLen(size))
					g.Expect(sameSide(res, parties[i])).To(BeTrue(), "party %v split in %+v", parties[i], res)
				}
			}
		})
	}
}

func TestBalance_ThreeTriplesSplitsOne(t *testing.T) {
	g := testsetup.WithGomega(t)
	players := ids("p", 10)
	parties := [][]string{players[0:3], players[3:6], players[6:9]}

	res, err := Balance(players, parties, testsetup.NewRand(3))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Fallback).To(BeFalse())
	expectValidSplit(g, players, res)

	whole := 0
	for _, p := range parties {
		if sameSide(res, p) {
			whole++
		}
	}
	// dos entran enteras, la tercera se divide sin perder a nadie
	g.Expect(whole).To(Equal(2))
}

func TestBalance_FourThreeThreeDividesLastParty(t *testing.T) {
	g := testsetup.WithGomega(t)
	players := ids("p", 10)
	parties := [][]string{players[0:4], players[4:7], players[7:10]}

	res, err := Balance(players, parties, testsetup.NewRand(9))
	g.Expect(err).NotTo(HaveOccurred())
	expectValidSplit(g, players, res)
	g.Expect(sameSide(res, parties[0])).To(BeTrue())
	g.Expect(sameSide(res, parties[1])).To(BeTrue())
	g.Expect(sameSide(res, parties[2])).To(BeFalse())
}

func TestBalance_IgnoresAbsentAndRepeatedMembers(t *testing.T) {
	g := testsetup.WithGomega(t)
	players := ids("p", 10)
	parties := [][]string{
		{"p1", "p2", "ghost", "p3"},
		{"p3", "p4"}, // p3 ya esta en la primera
	}
	res, err := Balance(players, parties, testsetup.NewRand(5))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Fallback).To(BeFalse())
	expectValidSplit(g, players, res)
	g.Expect(sameSide(res, []string{"p1", "p2", "p3"})).To(BeTrue())
}

func TestBalance_FallbackStillProducesFiveAndFive(t *testing.T) {
	players := ids("p", 9)
	players = append(players, "p1")

	res, err := Balance(players, nil, testsetup.NewRand(11))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Len(t, res.TeamA, domain.TeamSize)
	assert.Len(t, res.TeamB, domain.TeamSize)
	assert.ElementsMatch(t, players, append(append([]string{}, res.TeamA...), res.TeamB...))
}

func TestBalance_DoesNotMutateInput(t *testing.T) {
	players := ids("p", 10)
	orig := append([]string{}, players...)
	_, err := Balance(players, [][]string{players[0:3]}, testsetup.NewRand(2))
	require.NoError(t, err)
	assert.Equal(t, orig, players)
}

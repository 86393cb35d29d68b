package service

import (
	"testing"

	"github.com/onsi/gomega"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

func newParties(seed uint64) *PartyService {
	log, _ := testsetup.NewLogger()
	return NewPartyService(testsetup.NewRand(seed), log)
}

func TestParty_CreateAndCodes(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(1)

	p, err := s.Create("g", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(p.Leader).To(gomega.Equal("lead"))
	g.Expect(p.Members).To(gomega.Equal([]string{"lead"}))
	g.Expect(p.Code).To(gomega.MatchRegexp(`^\d{4}$`))

	_, err = s.Create("g", "lead")
	g.Expect(err).To(gomega.MatchError(domain.ErrAlreadyInParty))

	codes := map[string]bool{p.Code: true}
	for i := 0; i < 200; i++ {
		q, err := s.Create("g", "x"+string(rune('a'+i%26))+string(rune('a'+i/26)))
		g.Expect(err).ToNot(gomega.HaveOccurred())
		g.Expect(codes).ToNot(gomega.HaveKey(q.Code))
		codes[q.Code] = true
	}
}

func TestParty_InviteAccept(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(2)
	_, err := s.Create("g", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())

	_, err = s.Accept("g", "u1", "lead")
	g.Expect(err).To(gomega.MatchError(domain.ErrNotInvited))

	g.Expect(s.Invite("g", "u1", "u2")).To(gomega.MatchError(domain.ErrPartyNotFound))
	g.Expect(s.Invite("g", "lead", "u1")).To(gomega.Succeed())
	p, err := s.Accept("g", "u1", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(p.Members).To(gomega.ConsistOf("lead", "u1"))
	g.Expect(p.Invites).To(gomega.BeEmpty())

	g.Expect(s.Invite("g", "u1", "u3")).To(gomega.MatchError(domain.ErrNotLeader))
	g.Expect(s.Invite("g", "lead", "u1")).To(gomega.MatchError(domain.ErrAlreadyInParty))
}

func TestParty_SizeLimit(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(3)
	p, err := s.Create("g", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	for _, u := range []string{"a", "b", "c", "d"} {
		_, err := s.JoinByCode("g", u, p.Code)
		g.Expect(err).ToNot(gomega.HaveOccurred())
	}
	_, err = s.JoinByCode("g", "e", p.Code)
	g.Expect(err).To(gomega.MatchError(domain.ErrPartyFull))
	g.Expect(s.Invite("g", "lead", "e")).To(gomega.MatchError(domain.ErrPartyFull))

	_, err = s.JoinByCode("g", "e", "9999x")
	g.Expect(err).To(gomega.MatchError(domain.ErrInvalidCode))
}

func TestParty_LeaveKickDissolve(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(4)
	p, err := s.Create("g", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	for _, u := range []string{"a", "b", "c"} {
		_, err := s.JoinByCode("g", u, p.Code)
		g.Expect(err).ToNot(gomega.HaveOccurred())
	}

	disbanded, err := s.Leave("g", "a")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(disbanded).To(gomega.BeFalse())
	_, ok := s.PartyOf("g", "a")
	g.Expect(ok).To(gomega.BeFalse())

	g.Expect(s.Kick("g", "b", "c")).To(gomega.MatchError(domain.ErrNotLeader))
	g.Expect(s.Kick("g", "lead", "a")).To(gomega.MatchError(domain.ErrNotInParty))
	g.Expect(s.Kick("g", "lead", "lead")).To(gomega.MatchError(domain.ErrNotInParty))
	g.Expect(s.Kick("g", "lead", "b")).To(gomega.Succeed())

	disbanded, err = s.Leave("g", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(disbanded).To(gomega.BeTrue())
	_, ok = s.PartyOf("g", "c")
	g.Expect(ok).To(gomega.BeFalse())

	// el codigo viejo ya no sirve
	_, err = s.JoinByCode("g", "z", p.Code)
	g.Expect(err).To(gomega.MatchError(domain.ErrInvalidCode))

	_, err = s.Create("g", "c")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(s.Dissolve("g", "c")).To(gomega.Succeed())
	g.Expect(s.Dissolve("g", "c")).To(gomega.MatchError(domain.ErrPartyNotFound))
}

func TestParty_GuildsAreIsolated(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(5)
	_, err := s.Create("g1", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	_, err = s.Create("g2", "lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	_, ok := s.PartyOf("g3", "lead")
	g.Expect(ok).To(gomega.BeFalse())
}

func TestParty_QueuedToSkipsSolos(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	s := newParties(6)
	p, err := s.Create("g", "b-lead")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	_, err = s.JoinByCode("g", "b1", p.Code)
	g.Expect(err).ToNot(gomega.HaveOccurred())
	_, err = s.Create("g", "solo")
	g.Expect(err).ToNot(gomega.HaveOccurred())

	accept := func([]string) error { return nil }
	g.Expect(s.reserve("g", "b-lead", "main", accept)).To(gomega.Succeed())
	g.Expect(s.reserve("g", "solo", "main", accept)).To(gomega.Succeed())
	g.Expect(s.reserve("g", "b-lead", "other", accept)).To(gomega.MatchError(domain.ErrPartyQueued))

	g.Expect(s.queuedTo("g", "main")).To(gomega.Equal([][]string{{"b-lead", "b1"}}))

	s.releaseLobby("g", "main")
	g.Expect(s.queuedTo("g", "main")).To(gomega.BeEmpty())
}

// Package balancer reparte los 10 jugadores de un lobby en dos equipos de 5
// manteniendo juntas a las parties siempre que entren en un lado.
package balancer

import (
	"fmt"
	"sort"

	"github.com/elliotchance/pie/v2"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type Result struct {
	TeamA    []string
	TeamB    []string
	Fallback bool // true si se uso el reparto aleatorio
}

// Balance recibe los jugadores en orden de llegada y los miembros de cada party
// encolada en este lobby. Nunca pierde jugadores: si el armado por clusters no
// converge a 5/5 mezcla todo y corta al medio.
func Balance(players []string, parties [][]string, rnd Rand) (Result, error) {
	if len(players) != domain.LobbySize {
		return Result{}, fmt.Errorf("%w: got %d", domain.ErrNotEnoughPlayers, len(players))
	}

	clusters := buildClusters(players, parties)

	// estable para que el orden de llegada desempate entre clusters del mismo tamaño
	sort.SliceStable(clusters, func(i, j int) bool { return len(clusters[i]) > len(clusters[j]) })

	var big, small [][]string
	for _, c := range clusters {
		if len(c) >= 3 {
			big = append(big, c)
		} else {
			small = append(small, c)
		}
	}
	rnd.Shuffle(len(small), func(i, j int) { small[i], small[j] = small[j], small[i] })

	var a, b []string
	for _, c := range append(big, small...) {
		a, b = place(a, b, c)
	}
	a, b = rebalance(a, b)

	if valid(players, a, b) {
		return Result{TeamA: a, TeamB: b}, nil
	}
	return fallback(players, rnd), nil
}

// buildClusters agrupa por party (solo miembros presentes) y deja al resto como singletons.
func buildClusters(players []string, parties [][]string) [][]string {
	assigned := make(map[string]bool, len(players))
	var clusters [][]string
	for _, members := range parties {
		var c []string
		for _, m := range members {
			if assigned[m] || !pie.Contains(players, m) {
				continue
			}
			assigned[m] = true
			c = append(c, m)
		}
		if len(c) > 0 {
			clusters = append(clusters, c)
		}
	}
	for _, p := range players {
		if assigned[p] {
			continue
		}
		assigned[p] = true
		clusters = append(clusters, []string{p})
	}
	return clusters
}

// place pone el cluster entero en el lado con mas lugar; si no entra en ninguno lo parte.
func place(a, b, c []string) ([]string, []string) {
	roomA := domain.TeamSize - len(a)
	roomB := domain.TeamSize - len(b)
	toA := roomA > roomB || (roomA == roomB && len(a) <= len(b))

	if len(c) <= max(roomA, roomB) {
		if toA {
			return append(a, c...), b
		}
		return a, append(b, c...)
	}

	half := (len(c) + 1) / 2
	if toA {
		return append(a, c[:half]...), append(b, c[half:]...)
	}
	return append(a, c[half:]...), append(b, c[:half]...)
}

// rebalance mueve los ultimos agregados del lado que se paso de 5.
func rebalance(a, b []string) ([]string, []string) {
	for len(a) > domain.TeamSize && len(b) < domain.TeamSize {
		last := a[len(a)-1]
		a = a[:len(a)-1]
		b = append(b, last)
	}
	for len(b) > domain.TeamSize && len(a) < domain.TeamSize {
		last := b[len(b)-1]
		b = b[:len(b)-1]
		a = append(a, last)
	}
	return a, b
}

func valid(players, a, b []string) bool {
	if len(a) != domain.TeamSize || len(b) != domain.TeamSize {
		return false
	}
	seen := make(map[string]int, len(players))
	for _, p := range players {
		seen[p]++
	}
	for _, p := range append(append([]string{}, a...), b...) {
		seen[p]--
		if seen[p] < 0 {
			return false
		}
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func fallback(players []string, rnd Rand) Result {
	all := append([]string(nil), players...)
	rnd.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return Result{
		TeamA:    append([]string(nil), all[:domain.TeamSize]...),
		TeamB:    append([]string(nil), all[domain.TeamSize:]...),
		Fallback: true,
	}
}

package domain

// RankTier es una fila de la tabla de rangos.
type RankTier struct {
	Label     string
	MinRating int
	Emoji     string
}

// RankTiers va del mas exclusivo al mas bajo. El ultimo tiene minimo 0.
var RankTiers = []RankTier{
	{Label: "Tier 1", MinRating: 1350, Emoji: "🥇"},
	{Label: "Tier 2", MinRating: 1200, Emoji: "🥈"},
	{Label: "Tier 3", MinRating: 1050, Emoji: "🥉"},
	{Label: "Tier 4", MinRating: 900, Emoji: "🏅"},
	{Label: "Tier 5", MinRating: 750, Emoji: "🎖️"},
	{Label: "Tier 6", MinRating: 600, Emoji: "🏆"},
	{Label: "Tier 7", MinRating: 450, Emoji: "🔷"},
	{Label: "Tier 8", MinRating: 300, Emoji: "🔶"},
	{Label: "Tier 9", MinRating: 150, Emoji: "🔸"},
	{Label: "Tier 10", MinRating: 0, Emoji: "⚪"},
}

// TierIndex devuelve la posicion en RankTiers que corresponde al rating.
func TierIndex(rating int) int {
	for i, t := range RankTiers {
		if rating >= t.MinRating {
			return i
		}
	}
	return len(RankTiers) - 1
}

func TierFor(rating int) RankTier { return RankTiers[TierIndex(rating)] }

// NextTier devuelve el tier inmediatamente superior; false si ya esta en el maximo.
func NextTier(rating int) (RankTier, bool) {
	i := TierIndex(rating)
	if i == 0 {
		return RankTier{}, false
	}
	return RankTiers[i-1], true
}

// IsTierLabel reconoce los nombres de rol que maneja la tabla.
func IsTierLabel(name string) bool {
	for _, t := range RankTiers {
		if t.Label == name {
			return true
		}
	}
	return false
}

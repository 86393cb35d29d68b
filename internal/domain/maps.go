package domain

import (
	"fmt"
	"strings"
)

type MapName string

// MapPool son los mapas candidatos de toda votacion.
var MapPool = []MapName{"MIRAGE", "INFERNO", "NUKE", "ANCIENT", "ANUBIS", "DUST2", "TRAIN"}

func ParseMap(s string) (MapName, error) {
	m := MapName(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range MapPool {
		if c == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMap, s)
}

// Side identifica uno de los dos equipos de una partida.
type Side string

const (
	SideA Side = "T"
	SideB Side = "CT"
)

// ParseSide acepta A/T para el equipo A y B/CT para el B, sin importar mayusculas.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "T":
		return SideA, nil
	case "B", "CT":
		return SideB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

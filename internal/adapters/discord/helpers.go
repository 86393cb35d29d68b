package discord

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// cmdOptions aplana el subcomando (si hay) y devuelve su nombre.
func cmdOptions(data discordgo.ApplicationCommandInteractionData) (string, options) {
	out := options{}
	sub := ""
	for _, o := range data.Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			sub = o.Name
			for _, so := range o.Options {
				out[so.Name] = so
			}
			continue
		}
		out[o.Name] = o
	}
	return sub, out
}

func (o options) str(name string) string {
	if v, ok := o[name]; ok && v.Type == discordgo.ApplicationCommandOptionString {
		return v.StringValue()
	}
	return ""
}

// user devuelve el ID sin pegarle a la API.
func (o options) user(name string) string {
	if v, ok := o[name]; ok && v.Type == discordgo.ApplicationCommandOptionUser {
		return v.UserValue(nil).ID
	}
	return ""
}

func (o options) int(name string) (int, bool) {
	if v, ok := o[name]; ok && v.Type == discordgo.ApplicationCommandOptionInteger {
		return int(v.IntValue()), true
	}
	return 0, false
}

func (o options) intPtr(name string) *int {
	if v, ok := o.int(name); ok {
		return &v
	}
	return nil
}

func mention(id string) string { return "<@" + id + ">" }

func mentions(ids []string) string {
	if len(ids) == 0 {
		return "—"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = mention(id)
	}
	return strings.Join(parts, "\n")
}

// los custom IDs son "accion:lobby[:extra]"; por eso los nombres no admiten ':'
func componentID(action string, parts ...string) string {
	return strings.Join(append([]string{action}, parts...), ":")
}

func parseComponentID(id string) (action string, parts []string) {
	fields := strings.Split(id, ":")
	return fields[0], fields[1:]
}

var errTexts = map[string]string{
	domain.ErrInvalidName.Code:      "Nombre de lobby invalido (1-32 caracteres, sin ':' ni '/').",
	domain.ErrInvalidSide.Code:      "Lado invalido; usa T o CT.",
	domain.ErrInvalidMap.Code:       "Ese mapa no esta en el pool.",
	domain.ErrInvalidDuration.Code:  "La duracion no puede ser negativa.",
	domain.ErrInvalidPolicy.Code:    "Configuracion invalida: revisa que min <= max y que la votacion dure algo.",
	domain.ErrInvalidCode.Code:      "Codigo de party desconocido.",
	domain.ErrSelfTarget.Code:       "No podes hacerte eso a vos mismo.",
	domain.ErrAlreadyExists.Code:    "Ya existe un lobby con ese nombre.",
	domain.ErrAlreadyJoined.Code:    "Ya estas en el lobby.",
	domain.ErrFull.Code:             "El lobby esta lleno.",
	domain.ErrClosed.Code:           "El lobby esta cerrado.",
	domain.ErrNotInLobby.Code:       "Ese jugador no esta en el lobby.",
	domain.ErrNoActiveMatch.Code:    "El lobby no tiene un match en curso.",
	domain.ErrMatchInProgress.Code:  "El match ya arranco; usa `/sub` para reemplazos.",
	domain.ErrAlreadyResolved.Code:  "La votacion ya termino.",
	domain.ErrVoteNotFound.Code:     "No hay votacion abierta en ese lobby.",
	domain.ErrNotEnoughPlayers.Code: "Faltan jugadores: hacen falta 10.",
	domain.ErrNoHost.Code:           "El lobby no tiene host.",
	domain.ErrLobbyNotFound.Code:    "No existe ese lobby.",
	domain.ErrPartyNotFound.Code:    "No estas en ninguna party.",
	domain.ErrAlreadyInParty.Code:   "Ya esta en una party.",
	domain.ErrPartyFull.Code:        "La party esta llena (max 5).",
	domain.ErrNotInParty.Code:       "No es miembro de tu party.",
	domain.ErrNotInvited.Code:       "No tenes invitacion de esa party.",
	domain.ErrPartyQueued.Code:      "La party ya esta en un lobby.",
	domain.ErrPartyNotQueued.Code:   "La party no esta en ese lobby.",
	domain.ErrNotEnoughRoom.Code:    "No hay lugar para toda la party.",
	domain.ErrNotSuspended.Code:     "Ese jugador no esta suspendido.",
	domain.ErrAlreadyInMatch.Code:   "Ese jugador ya juega este match.",
	domain.ErrNotInMatch.Code:       "Ese jugador no juega este match.",
	domain.ErrNoPendingRequest.Code: "No hay pedido de reemplazo pendiente.",
	domain.ErrPermissionDenied.Code: "No tenes permisos para esta accion.",
	domain.ErrNotLeader.Code:        "Solo el lider de la party puede hacer eso.",
	domain.ErrSuspended.Code:        "Suspendido: no podes participar.",
	domain.ErrNotEligible.Code:      "No jugas este match, no podes votar.",
	domain.ErrUnavailable.Code:      "Servicio no disponible, proba en un rato.",
}

// errText traduce el error de dominio a un mensaje para el usuario.
func errText(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return "⚠️ Ocurrio un error inesperado."
	}
	prefix := "⚠️ "
	if de.Kind == domain.KindPermission {
		prefix = "🔒 "
	}
	if t, ok := errTexts[de.Code]; ok {
		return prefix + t
	}
	return prefix + de.Message
}

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func lobbyOpt() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "lobby",
		Description: "Nombre del lobby",
		Required:    true,
	}
}

func userOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: desc,
		Required:    required,
	}
}

func sub(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: desc,
		Options:     opts,
	}
}

func intOpt(name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc}
}

func mapChoices() []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.MapPool))
	for _, m := range domain.MapPool {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: string(m), Value: string(m)})
	}
	return out
}

var Commands = []*discordgo.ApplicationCommand{
	{Name: "ping", Description: "Chequea que el bot responda"},
	{
		Name:        "lobby",
		Description: "Crear y manejar lobbies 5v5",
		Options: []*discordgo.ApplicationCommandOption{
			sub("create", "Crear un lobby (rol Host)", lobbyOpt()),
			sub("join", "Unirte al lobby", lobbyOpt()),
			sub("leave", "Salir del lobby", lobbyOpt()),
			sub("view", "Ver el lobby", lobbyOpt()),
			sub("list", "Ver todos los lobbies"),
			sub("start", "Armar equipos y arrancar (host o admin)", lobbyOpt()),
			sub("open", "Abrir el lobby", lobbyOpt()),
			sub("close", "Cerrar el lobby a nuevos jugadores", lobbyOpt()),
			sub("remove", "Borrar el lobby", lobbyOpt()),
			sub("kick", "Sacar a un jugador", lobbyOpt(), userOpt("user", "Jugador", true)),
			sub("panel", "Publicar el panel con botones en este canal", lobbyOpt()),
		},
	},
	{
		Name:        "party",
		Description: "Jugar en grupo",
		Options: []*discordgo.ApplicationCommandOption{
			sub("create", "Crear una party"),
			sub("invite", "Invitar a alguien", userOpt("user", "Jugador", true)),
			sub("accept", "Aceptar una invitacion", userOpt("leader", "Lider de la party", true)),
			sub("join", "Unirte con el codigo", &discordgo.ApplicationCommandOption{
				Type: discordgo.ApplicationCommandOptionString, Name: "code", Description: "Codigo de 4 digitos", Required: true,
			}),
			sub("leave", "Salir de la party"),
			sub("kick", "Sacar a un miembro", userOpt("user", "Miembro", true)),
			sub("disband", "Disolver la party"),
			sub("info", "Ver tu party"),
			sub("queue", "Entrar al lobby con toda la party", lobbyOpt()),
			sub("unqueue", "Sacar a toda la party del lobby", lobbyOpt()),
		},
	},
	{
		Name:        "vote",
		Description: "Votar el mapa del match",
		Options: []*discordgo.ApplicationCommandOption{
			lobbyOpt(),
			{Type: discordgo.ApplicationCommandOptionString, Name: "map", Description: "Mapa", Required: true, Choices: mapChoices()},
		},
	},
	{
		Name:        "report",
		Description: "Reportar el ganador (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			lobbyOpt(),
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Equipo ganador", Required: true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "T", Value: string(domain.SideA)},
					{Name: "CT", Value: string(domain.SideB)},
				},
			},
		},
	},
	{
		Name:        "sub",
		Description: "Reemplazos durante el match",
		Options: []*discordgo.ApplicationCommandOption{
			sub("request", "Pedir reemplazo", lobbyOpt(), userOpt("user", "Quien sale (vos por defecto)", false)),
			sub("replace", "Hacer el cambio (host o admin)", lobbyOpt(),
				userOpt("incoming", "Quien entra", true),
				userOpt("outgoing", "Quien sale (si no, el pedido pendiente)", false)),
		},
	},
	{
		Name:        "suspend",
		Description: "Suspender a un jugador (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			userOpt("user", "Jugador", true),
			intOpt("hours", "Horas; 0 = permanente"),
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Motivo"},
		},
	},
	{
		Name:        "unsuspend",
		Description: "Levantar una suspension (admins)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "Jugador", true)},
	},
	{
		Name:        "suspension",
		Description: "Ver si un jugador esta suspendido",
		Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "Jugador (vos por defecto)", false)},
	},
	{
		Name:        "profile",
		Description: "Rating, rango y ultimas partidas",
		Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "Jugador (vos por defecto)", false)},
	},
	{Name: "leaderboard", Description: "Top 10 del servidor"},
	{
		Name:        "policy",
		Description: "Ver o cambiar premios y tiempo de votacion (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			sub("show", "Ver configuracion"),
			sub("set", "Actualizar (solo lo que pases)",
				intOpt("win_min", "Puntos minimos por ganar"),
				intOpt("win_max", "Puntos maximos por ganar"),
				intOpt("loss_min", "Puntos minimos por perder"),
				intOpt("loss_max", "Puntos maximos por perder"),
				intOpt("vote_seconds", "Duracion de la votacion de mapa"),
			),
		},
	},
}

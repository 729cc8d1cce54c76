package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "servico",
			Description:  "Registra um serviço prestado para a fazenda",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "historico",
			Description:  "Mostra seu histórico de serviços e ganhos",
			DMPermission: boolPtr(false),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/commands"
)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.log.Info("connected", "user", event.User.Username)

	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			b.log.Error("failed to register commands", "guild", guild.ID, "error", err)
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	b.log.Info("guild available, ensuring commands", "guild", event.Name, "id", event.ID)
	if err := b.registerGuildCommands(event.ID); err != nil {
		b.log.Error("failed to register commands", "guild", event.ID, "error", err)
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	b.log.Info("registered application commands", "guild", guildID)
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "servico":
			commands.HandleService(s, i, b.deps)
		case "historico":
			commands.HandleHistory(s, i, b.deps)
		}
	case discordgo.InteractionMessageComponent:
		commands.HandleComponent(s, i, b.deps)
	case discordgo.InteractionModalSubmit:
		commands.HandleModalSubmit(s, i, b.deps)
	}
}

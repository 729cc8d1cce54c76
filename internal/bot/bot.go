package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/commands"
	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/evidence"
	"github.com/fazendarp/fazendabot/internal/session"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/fazendarp/fazendabot/internal/workflow"
)

type Bot struct {
	session  *discordgo.Session
	msgr     pipelineSession
	deps     *commands.Deps
	sessions *session.Store
	store    *store.Store
	eco      *config.Economy
	builder  *submission.Builder

	collector  *evidence.Collector
	downloader *evidence.Downloader
	reminder   *reminderWorker
	log        *slog.Logger
}

// New wires the bot around an existing discord session. The session is shared
// with the approval workflow, which posts and deletes channel messages.
func New(ds *discordgo.Session, eco *config.Economy, st *store.Store, sessions *session.Store, wf *workflow.Workflow, builder *submission.Builder, log *slog.Logger) *Bot {
	bot := &Bot{
		session:    ds,
		msgr:       ds,
		sessions:   sessions,
		store:      st,
		eco:        eco,
		builder:    builder,
		collector:  evidence.NewCollector(eco.EvidenceTimeout),
		downloader: evidence.NewDownloader(log),
		log:        log,
	}
	bot.deps = &commands.Deps{
		Sessions:      sessions,
		Store:         st,
		Economy:       eco,
		Workflow:      wf,
		Log:           log,
		StartEvidence: bot.startEvidence,
	}
	bot.reminder = newReminderWorker(ds, st, eco.PendingReminderAge, log)

	ds.AddHandler(bot.onReady)
	ds.AddHandler(bot.onGuildCreate)
	ds.AddHandler(bot.onInteractionCreate)

	ds.Identify.Intents = discordgo.IntentsAll

	return bot
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	b.log.Info("discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	b.sessions.Close()
	return b.session.Close()
}

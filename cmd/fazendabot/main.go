package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/fazendarp/fazendabot/internal/api"
	"github.com/fazendarp/fazendabot/internal/bot"
	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/ocr"
	"github.com/fazendarp/fazendabot/internal/permissions"
	"github.com/fazendarp/fazendabot/internal/session"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/fazendarp/fazendabot/internal/verify"
	"github.com/fazendarp/fazendabot/internal/workflow"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	eco, err := config.LoadEconomy(cfg.EconomyPath)
	if err != nil {
		log.Error("failed to load economy config", "path", cfg.EconomyPath, "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Error("failed to open store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// OCR and image processing are optional capabilities; without them every
	// claim goes to human review.
	ocrCap := ocr.Unavailable()
	switch cfg.OCRProvider {
	case "openai":
		ocrCap = ocr.NewCapability(ocr.NewOpenAIClient(cfg.OpenAIKey))
	case "http":
		ocrCap = ocr.NewCapability(ocr.NewHTTPClient(cfg.OCRBaseURL))
	default:
		log.Warn("no OCR provider configured; all claims will need manual review")
	}

	icons, err := verify.LoadIcons(eco.IconTemplateDir)
	if err != nil {
		log.Error("failed to load icon templates", "dir", eco.IconTemplateDir, "error", err)
		os.Exit(1)
	}

	verifier := &verify.Verifier{
		OCR:    ocrCap,
		Images: verify.NewImageCapability(eco.IconVerification),
		Icons:  icons,
		Log:    log.With("component", "verify"),
	}
	builder := &submission.Builder{Verifier: verifier, Economy: eco}

	gate, err := permissions.NewGate(eco.RolePolicy, eco.RolePolicy["accept"])
	if err != nil {
		log.Error("invalid role policy", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(eco.SessionTTL)

	ds, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}

	wf := workflow.New(st, gate, ds, eco, log.With("component", "workflow"))
	discordBot := bot.New(ds, eco, st, sessions, wf, builder, log.With("component", "bot"))

	// Initialize API server
	apiServer := api.New(cfg, eco, st, builder, log.With("component", "api"))

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		log.Error("failed to start discord bot", "error", err)
		os.Exit(1)
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error("api server error", "error", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
}

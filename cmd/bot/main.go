// Package main is the entry point for the PancyMod Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/internal/commands"
	"github.com/PancyStudios/PancyModGo/internal/events"
	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/internal/scheduler"
	"github.com/PancyStudios/PancyModGo/pkg/config"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/mqtt"
	"github.com/PancyStudios/PancyModGo/pkg/web"
)

const (
	logCacheRefresh = 5 * time.Minute
	restoreTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando PancyMod Go %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	if err := cfg.Validate(); err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w, "Main")
	}

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errHandler := errors.Init(errors.Options{
		WebhookURL:  cfg.ErrorWebhook,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     config.Version,
		ShutdownFunc: func() {
			if discordClient != nil {
				_ = discordClient.Stop()
			}
		},
	})
	defer errHandler.Stop()

	// Initialize database
	store, err := openStore(cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("Error conectando a la base de datos: %v", err), "Main")
		if store == nil {
			os.Exit(1)
		}
		// Mongo keeps reconnecting in the background.
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando la base de datos: %v", err), "Main")
		}
	}()

	logCache := database.NewLogChannelCache(store)
	if err := logCache.Refresh(context.Background()); err != nil {
		logger.Warn(fmt.Sprintf("Error inicializando caché de canales de logs: %v", err), "Main")
	}
	logCache.StartAutoRefresh(logCacheRefresh)
	defer logCache.StopAutoRefresh()

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	// Initialize MQTT
	mqttClientID := "pancymod"
	if !cfg.IsProd() {
		mqttClientID = "pancymod_canary"
	}
	mqttClient := mqtt.NewMqttCommunicator(
		cfg.MQTTHost,
		cfg.MQTTPort,
		cfg.MQTTUser,
		cfg.MQTTPassword,
		mqttClientID,
	)
	defer mqttClient.Destroy()
	mqttClient.On(mqtt.ActiveMutesTopic, mqtt.ActiveMutesHandler(store, 5*time.Second))

	// Moderation core
	logs := modlog.NewDispatcher(logCache, discordClient.Gateway)
	recorder := moderation.NewRecorder(store)
	recorder.AddSink(logs)
	recorder.AddSink(mqttClient)

	engine := moderation.NewEngine(store, discordClient.Gateway, recorder, moderation.Options{
		MuteRoleID: cfg.MuteRoleID,
	})

	sched := scheduler.New(discordClient, scheduler.Options{Warmup: cfg.SchedulerWarmup})
	sched.Add(scheduler.NewMuteExpiryJob(store, discordClient.Gateway, recorder, cfg.MuteRoleID, cfg.MutePollInterval))
	sched.Add(scheduler.NewBirthdayJob(store, discordClient.Gateway, cfg.BirthdayRoleID, cfg.BirthdayCatchUp, cfg.BirthdayPollInterval))
	if cfg.BirthdayRoleID != "" {
		sched.Add(scheduler.NewBirthdayRoleExpiryJob(store, discordClient.Gateway, cfg.BirthdayRoleID, cfg.BirthdayRolePollInterval))
	}

	appeals := appeal.NewManager(discordClient.Gateway, discordClient.Waiter, appeal.Config{
		GuildID:       cfg.AppealGuildID,
		CategoryID:    cfg.AppealCategoryID,
		LogChannelID:  cfg.AppealLogChannelID,
		ReasonTimeout: cfg.AppealReasonTimeout,
		CloseDelay:    cfg.AppealCloseDelay,
	})

	// Register commands using the new commands package
	commands.RegisterAll(discordClient, cfg, commands.Deps{
		Store:     store,
		Engine:    engine,
		LogCache:  logCache,
		Appeals:   appeals,
		Scheduler: sched,
	})

	// Register events using the new events package
	var appealEvents events.Appeals
	if cfg.AppealsEnabled() {
		appealEvents = appeals
	}
	events.RegisterAll(discordClient, logs, appealEvents)

	// Initialize web server
	webServer, err := web.NewServer(cfg.LogsWebServerHook, cfg.WebAllowedHosts)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el servidor web: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.API{Store: store, Bot: discordClient, Appeals: appeals})
	webServer.StartAsync(cfg.Port)

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	if cfg.AppealsEnabled() {
		go restoreAppeals(ctx, discordClient, appeals)
	}

	logger.Success("PancyMod Go iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando PancyMod Go...", "Main")

	cancel()
	sched.Stop()
	appeals.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn(fmt.Sprintf("Error apagando el servidor web: %v", err), "Main")
	}
	if err := discordClient.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
	}
}

// openStore opens the backend selected by storeDriver. The Mongo store is
// returned together with its connection error so it can keep retrying.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.UseMongo() {
		logger.Info("Usando MongoDB como almacenamiento", "Main")
		return database.OpenMongo(cfg.MongoDBURL, cfg.DBName)
	}
	logger.Info("Usando SQLite como almacenamiento: "+cfg.SQLitePath, "Main")
	s, err := database.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// restoreAppeals re-attaches relays once the gateway is ready.
func restoreAppeals(ctx context.Context, client *discord.ExtendedClient, appeals *appeal.Manager) {
	defer errors.RecoverMiddleware()()

	if err := client.WaitReady(ctx); err != nil {
		return
	}
	restoreCtx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	n, err := appeals.Restore(restoreCtx)
	if err != nil {
		logger.Error(fmt.Sprintf("Error restaurando apelaciones: %v", err), "Appeals")
		return
	}
	logger.Info(fmt.Sprintf("%d apelaciones restauradas", n), "Appeals")
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}

// Package appeal runs ban appeals: a banned user talks to staff through the
// bot, which relays messages between the user's DMs and a private staff
// channel until staff close the appeal.
package appeal

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

var (
	ErrAppealActive     = stderrors.New("el usuario ya tiene una apelación activa")
	ErrNotDM            = stderrors.New("las apelaciones solo se inician por mensaje directo")
	ErrNotAppealChannel = stderrors.New("el canal no es una apelación")
	ErrReasonTimeout    = stderrors.New("tiempo de espera agotado")
)

const (
	topicMarker = "Apelación de ban de"
	// Channels opened before the bot was translated.
	legacyTopicMarker = "Ban appeal for"

	noteMarker = "="
)

// Platform is the subset of the chat gateway used by appeals.
type Platform interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	User(userID string) (*discordgo.User, error)
	SendDM(userID string, msg *discordgo.MessageSend) error
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	CreateTextChannel(guildID, name, topic, parentID string) (*discordgo.Channel, error)
	DeleteChannel(channelID string) error
	CategoryChannels(guildID, categoryID string) ([]*discordgo.Channel, error)
}

// Waiter delivers incoming messages.
type Waiter interface {
	Wait(ctx context.Context, filter discord.MessageFilter) (*discordgo.Message, error)
	Subscribe(filter discord.MessageFilter) (<-chan *discordgo.Message, func())
}

// Config locates the appeal server.
type Config struct {
	GuildID       string
	CategoryID    string
	LogChannelID  string
	ReasonTimeout time.Duration
	CloseDelay    time.Duration
}

// Manager owns every appeal relay of the process.
type Manager struct {
	platform Platform
	waiter   Waiter
	registry *Registry
	cfg      Config

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. Relays live until Close or Shutdown.
func NewManager(platform Platform, waiter Waiter, cfg Config) *Manager {
	if cfg.ReasonTimeout <= 0 {
		cfg.ReasonTimeout = 300 * time.Second
	}
	if cfg.CloseDelay < 0 {
		cfg.CloseDelay = 0
	}
	root, cancel := context.WithCancel(context.Background())
	return &Manager{
		platform: platform,
		waiter:   waiter,
		registry: NewRegistry(),
		cfg:      cfg,
		root:     root,
		cancel:   cancel,
	}
}

// Sessions returns the active relays.
func (m *Manager) Sessions() []Session {
	return m.registry.All()
}

// Active reports whether userID has an appeal in progress.
func (m *Manager) Active(userID string) bool {
	return m.registry.Has(userID)
}

// CategoryID returns the category holding appeal channels.
func (m *Manager) CategoryID() string {
	return m.cfg.CategoryID
}

func userDMs(userID string) discord.MessageFilter {
	return func(msg *discordgo.Message) bool {
		return msg.GuildID == "" && msg.Author != nil && msg.Author.ID == userID && !msg.Author.Bot
	}
}

var channelNameInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

func channelName(username string) string {
	name := channelNameInvalid.ReplaceAllString(strings.ToLower(username), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "usuario"
	}
	return name + "-ban-appeal"
}

func topicFor(user *discordgo.User) string {
	return fmt.Sprintf("%s %s (%s)", topicMarker, user.Username, user.ID)
}

// userIDFromTopic extracts the user id from an appeal channel topic.
func userIDFromTopic(topic string) (string, bool) {
	if !strings.Contains(topic, topicMarker) && !strings.Contains(topic, legacyTopicMarker) {
		return "", false
	}
	start := strings.LastIndex(topic, "(")
	end := strings.LastIndex(topic, ")")
	if start < 0 || end <= start+1 {
		return "", false
	}
	id := topic[start+1 : end]
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

// Start opens an appeal for the author of a DM: it asks for the reason,
// creates the staff channel and starts relaying.
func (m *Manager) Start(ctx context.Context, r discord.Responder, user *discordgo.User) error {
	if r.GuildID() != "" {
		_ = r.Respond("Este comando solo se puede usar por mensaje directo conmigo.", false)
		return ErrNotDM
	}
	logger.Info(fmt.Sprintf("Apelación iniciada por %s (%s)", user.Username, user.ID), "Appeals")

	guild, err := m.platform.Guild(m.cfg.GuildID)
	if err != nil {
		logger.Error("Servidor de apelaciones no encontrado: "+err.Error(), "Appeals")
		_ = r.Respond("No se encontró el servidor, contacta a los moderadores directamente.", false)
		return err
	}

	if !m.registry.Reserve(user.ID) {
		_ = r.Respond("Ya tienes una apelación activa. Espera a que el staff responda.", false)
		return ErrAppealActive
	}
	defer m.registry.Release(user.ID)

	_ = r.Respond("Explica por qué crees que tu baneo fue injusto:", false)

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ReasonTimeout)
	defer cancel()
	stop := context.AfterFunc(m.root, cancel)
	defer stop()

	msg, err := m.waiter.Wait(waitCtx, func(msg *discordgo.Message) bool {
		return userDMs(user.ID)(msg) && !strings.HasPrefix(msg.Content, "!")
	})
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			_ = r.Respond("Tardaste demasiado en responder. Vuelve a empezar con `!appeal`.", false)
			logger.Info("Apelación sin respuesta de "+user.ID, "Appeals")
			return ErrReasonTimeout
		}
		return err
	}
	reason := strings.TrimSpace(msg.Content)

	if _, err := m.platform.Channel(m.cfg.CategoryID); err != nil {
		logger.Error("Categoría de apelaciones no encontrada: "+err.Error(), "Appeals")
		_ = r.Respond("No se encontró la categoría de apelaciones. Contacta a los moderadores directamente.", false)
		return err
	}

	channel, err := m.platform.CreateTextChannel(guild.ID, channelName(user.Username), topicFor(user), m.cfg.CategoryID)
	if err != nil {
		if stderrors.Is(err, discord.ErrForbidden) {
			logger.Error("Sin permiso para crear canales en "+guild.Name, "Appeals")
			_ = r.Respond("No tengo permiso para crear canales en el servidor.", false)
		} else {
			errors.Capture(fmt.Errorf("crear canal de apelación: %w", err), "Appeals")
			_ = r.Respond("Ocurrió un error al crear tu canal de apelación.", false)
		}
		return err
	}
	logger.Success(fmt.Sprintf("Canal %s (%s) creado para %s", channel.Name, channel.ID, user.ID), "Appeals")

	m.logEvent(fmt.Sprintf("📨 Nueva apelación de ban de **%s** (<@%s>) en <#%s>", user.Username, user.ID, channel.ID))

	_, err = m.platform.Send(channel.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("**Nueva apelación de ban**\nUsuario: <@%s> (%s)\nRazón:\n```%s```\n"+
			"El staff puede responder aquí y los mensajes se enviarán al usuario. "+
			"Los mensajes que empiecen por `%s` son notas internas.\n"+
			"Usa `!close` para cerrar esta apelación.", user.ID, user.ID, reason, noteMarker),
	})
	if err != nil {
		logger.Warn("No se pudo enviar el resumen de la apelación: "+err.Error(), "Appeals")
	}

	_ = r.Respond("✅ Tu apelación fue creada. El staff revisará tu caso pronto. "+
		"Puedes seguir enviando mensajes aquí si lo deseas.", false)

	m.spawn(user, channel.ID)
	return nil
}

func (m *Manager) logEvent(content string) {
	if m.cfg.LogChannelID == "" {
		return
	}
	if _, err := m.platform.Send(m.cfg.LogChannelID, &discordgo.MessageSend{Content: content}); err != nil {
		logger.Warn("No se pudo escribir en el canal de registro de apelaciones: "+err.Error(), "Appeals")
	}
}

// spawn starts the relay goroutine and registers it.
func (m *Manager) spawn(user *discordgo.User, channelID string) bool {
	ctx, cancel := context.WithCancel(m.root)
	done := make(chan struct{})

	sess := m.registry.Attach(user.ID, channelID, cancel, done)
	if sess == nil {
		cancel()
		return false
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		defer m.registry.removeIf(user.ID, sess)
		defer errors.RecoverMiddleware()()

		m.relay(ctx, user, channelID)
	}()
	return true
}

// Restore re-attaches relays to the appeal channels left open by a previous
// run. The channel topic carries the user id.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	channels, err := m.platform.CategoryChannels(m.cfg.GuildID, m.cfg.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("listar canales de apelación: %w", err)
	}

	restored := 0
	for _, ch := range channels {
		if ctx.Err() != nil {
			return restored, ctx.Err()
		}
		userID, ok := userIDFromTopic(ch.Topic)
		if !ok {
			continue
		}
		if m.registry.Has(userID) {
			logger.Debug("Omitiendo "+ch.Name+": ya tiene relay activo", "Appeals")
			continue
		}
		user, err := m.platform.User(userID)
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo restaurar la apelación de %s: %v", ch.Name, err), "Appeals")
			continue
		}
		if m.spawn(user, ch.ID) {
			restored++
			logger.Success(fmt.Sprintf("Relay restaurado para %s (%s)", user.Username, user.ID), "Appeals")
		}
	}
	return restored, nil
}

// Close ends the appeal bound to channelID. It returns ErrNotAppealChannel
// when the channel is outside the appeal category.
func (m *Manager) Close(ctx context.Context, r discord.Responder, channelID string, closer *discordgo.User) error {
	ch, err := m.platform.Channel(channelID)
	if err != nil {
		return err
	}
	if ch.ParentID == "" || ch.ParentID != m.cfg.CategoryID {
		return ErrNotAppealChannel
	}
	logger.Info(fmt.Sprintf("Cerrando apelación %s por %s", ch.Name, closer.Username), "Appeals")

	m.logEvent(fmt.Sprintf("🛑 La apelación **%s** fue cerrada por <@%s>.", ch.Name, closer.ID))

	userID, ok := m.registry.ByChannel(channelID)
	if !ok {
		userID, _ = userIDFromTopic(ch.Topic)
	}
	if sess := m.registry.Remove(userID); sess != nil && sess.cancel != nil {
		sess.cancel()
		select {
		case <-sess.done:
		case <-time.After(5 * time.Second):
			logger.Warn("El relay de "+userID+" no terminó a tiempo", "Appeals")
		}
	}

	if userID != "" {
		err := m.platform.SendDM(userID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Apelación cerrada",
				Description: fmt.Sprintf("Tu apelación de ban fue cerrada por el staff **%s**.", closer.Username),
				Color:       colorClosed,
			}},
		})
		if err != nil {
			logger.Warn("No se pudo avisar al usuario "+userID+": "+err.Error(), "Appeals")
		}
	}

	_ = r.Respond(fmt.Sprintf("Cerrando el canal de apelación en %d segundos...", int(m.cfg.CloseDelay.Seconds())), false)

	select {
	case <-time.After(m.cfg.CloseDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := m.platform.DeleteChannel(channelID); err != nil {
		errors.Capture(fmt.Errorf("borrar canal de apelación %s: %w", ch.Name, err), "Appeals")
		return err
	}
	logger.Success("Canal de apelación "+ch.Name+" borrado", "Appeals")
	return nil
}

// Shutdown cancels every relay and waits for them to return.
func (m *Manager) Shutdown() {
	m.cancel()
	for _, s := range m.registry.CancelAll() {
		if s.cancel != nil {
			logger.Debug("Relay cancelado para "+s.UserID, "Appeals")
		}
	}
	m.wg.Wait()
	logger.System("Relays de apelación detenidos", "Appeals")
}

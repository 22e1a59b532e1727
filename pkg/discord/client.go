// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with command routing, component routing, confirmation
// prompts and a message waiter used by the appeal relay.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/config"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		logger.Info(fmt.Sprintf(format, a...), "DiscordGo")
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	Components     *ComponentRouter
	Confirm        *ConfirmRegistry
	Waiter         *MessageWaiter
	Gateway        *Gateway
	StartTime      time.Time

	ready     chan struct{}
	readyOnce sync.Once
	mu        sync.RWMutex
	isReady   bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

// gatewayIntents covers the events the bot consumes. Message content is
// needed for the appeal relay and the prefix commands.
const gatewayIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildBans |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = gatewayIntents

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.State.MaxMessageCount = 200
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:    session,
		Commands:   NewCommandCollection(),
		Components: NewComponentRouter(),
		Confirm:    NewConfirmRegistry(config.Get().ConfirmTimeout),
		Waiter:     NewMessageWaiter(),
		Gateway:    NewGateway(session),
		ready:      make(chan struct{}),
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)
	c.Components.Handle(confirmPrefix, c.Confirm.HandleComponent)

	return c, nil
}

// Start opens the gateway connection.
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()
		c.readyOnce.Do(func() { close(c.ready) })

		logger.Success("Bot conectado como: "+r.User.Username, "Client")

		c.CommandHandler.RegisterCommands()
	})

	c.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		c.Waiter.Dispatch(m.Message)
	})

	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// WaitReady blocks until the first Ready event or until ctx ends.
func (c *ExtendedClient) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commandKey builds "name", "name.sub" or "name.group.sub".
func commandKey(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) == 0 {
		return name
	}
	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return name + "." + opt.Name
	}
	return name
}

func (c *ExtendedClient) newContext(s *discordgo.Session, i *discordgo.InteractionCreate) *CommandContext {
	return &CommandContext{
		Session:     s,
		Interaction: i,
		Client:      c,
		responder:   NewInteractionResponder(s, i.Interaction, c.Confirm),
	}
}

func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		c.Components.Route(s, i)
		return

	case discordgo.InteractionApplicationCommandAutocomplete:
		cmd, ok := c.Commands.Get(commandKey(i.ApplicationCommandData()))
		if ok && cmd.AutoComplete != nil {
			cmd.AutoComplete(c.newContext(s, i))
		}
		return

	case discordgo.InteractionApplicationCommand:
		commandName := commandKey(i.ApplicationCommandData())
		cmd, ok := c.Commands.Get(commandName)
		if !ok {
			logger.Warn("Command not found: "+commandName, "Client")
			return
		}

		ctx := c.newContext(s, i)
		if cmd.GuildOnly && i.GuildID == "" {
			_ = ctx.ReplyEphemeral("❌ | Este comando solo funciona en servidores.")
			return
		}
		if err := cmd.Run(ctx); err != nil {
			logger.Error("Error executing command "+commandName+": "+err.Error(), "Client")
		}
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// GetConfig returns the bot configuration
func (c *ExtendedClient) GetConfig() *config.Config {
	return config.Get()
}

// BotUser returns the bot's own user once the session is ready.
func (c *ExtendedClient) BotUser() *discordgo.User {
	if c.Session == nil || c.Session.State == nil {
		return nil
	}
	return c.Session.State.User
}

// Package web provides API routes for the web server.
package web

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/PancyStudios/PancyModGo/pkg/sysinfo"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// Store is the read side of the persistent store exposed over HTTP.
type Store interface {
	Status() (string, bool)
	ListGuildMutes(ctx context.Context, guildID string) ([]models.ActiveMute, error)
	ListInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error)
}

// Bot reports the state of the gateway connection.
type Bot interface {
	IsReady() bool
	GuildCount() int
	BotUser() *discordgo.User
}

// AppealLister lists the running appeal sessions.
type AppealLister interface {
	Sessions() []appeal.Session
}

// API groups the dependencies of the /api routes.
type API struct {
	Store   Store
	Bot     Bot
	Appeals AppealLister
	// System collects host metrics; sysinfo.Collect when nil.
	System func(ctx context.Context) sysinfo.Snapshot
}

const requestTimeout = 5 * time.Second

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, api API) {
	if api.System == nil {
		api.System = sysinfo.Collect
	}

	group := s.Group("/api")
	{
		group.GET("/status", api.statusHandler)
		group.GET("/health", healthHandler)
		group.GET("/bot", api.botInfoHandler)
		group.GET("/system", api.systemHandler)
		group.GET("/appeals", api.appealsHandler)
		group.GET("/guilds/:guildId/mutes", api.mutesHandler)
		group.GET("/guilds/:guildId/users/:userId/infractions", api.infractionsHandler)
	}
}

func (a API) botReady() bool {
	return a.Bot != nil && a.Bot.IsReady()
}

// statusHandler returns the bot and database status
func (a API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "🔴 | Desconectado", false
	if a.Store != nil {
		dbStatus, dbOnline = a.Store.Status()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": a.botReady(),
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyMod Go is running",
	})
}

func botOffline(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Bot Offline",
		"message": "El bot no está disponible en este momento.",
	})
}

// botInfoHandler returns information about the bot
func (a API) botInfoHandler(c *gin.Context) {
	if !a.botReady() || a.Bot.BotUser() == nil {
		botOffline(c)
		return
	}

	user := a.Bot.BotUser()

	c.JSON(http.StatusOK, gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"discriminator": user.Discriminator,
		"avatar":        user.Avatar,
		"guilds":        a.Bot.GuildCount(),
		"isReady":       true,
	})
}

func (a API) systemHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	c.JSON(http.StatusOK, a.System(ctx))
}

type appealView struct {
	UserID    string    `json:"userId"`
	ChannelID string    `json:"channelId,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Attached  bool      `json:"attached"`
}

func (a API) appealsHandler(c *gin.Context) {
	var sessions []appeal.Session
	if a.Appeals != nil {
		sessions = a.Appeals.Sessions()
	}
	views := lo.Map(sessions, func(s appeal.Session, _ int) appealView {
		return appealView{UserID: s.UserID, ChannelID: s.ChannelID, StartedAt: s.StartedAt, Attached: s.Attached()}
	})
	sort.Slice(views, func(i, j int) bool { return views[i].StartedAt.Before(views[j].StartedAt) })

	c.JSON(http.StatusOK, gin.H{"count": len(views), "appeals": views})
}

func storeFailure(c *gin.Context, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Database Error",
		"message": err.Error(),
	})
}

func (a API) mutesHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	mutes, err := a.Store.ListGuildMutes(ctx, c.Param("guildId"))
	if err != nil {
		storeFailure(c, err)
		return
	}
	if mutes == nil {
		mutes = []models.ActiveMute{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(mutes), "mutes": mutes})
}

func (a API) infractionsHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	infractions, err := a.Store.ListInfractions(ctx, c.Param("guildId"), c.Param("userId"))
	if err != nil {
		storeFailure(c, err)
		return
	}

	kind := models.InfractionKind(c.Query("type"))
	if kind != "" {
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Tipo de infracción desconocido.",
			})
			return
		}
		infractions = lo.Filter(infractions, func(inf models.Infraction, _ int) bool { return inf.Kind == kind })
	}
	if infractions == nil {
		infractions = []models.Infraction{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(infractions), "infractions": infractions})
}

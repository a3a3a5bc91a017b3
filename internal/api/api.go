// Package api exposes the game over a JSON HTTP interface for the Telegram
// WebApp and the bot process.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/gameserver"
	"github.com/cory-johannsen/waifu/internal/observability"
)

// Game is the set of game operations the API serves.
type Game interface {
	Profile(ctx context.Context, telegramID int64) (gameserver.Profile, error)
	Waifus(ctx context.Context, telegramID int64) ([]gameserver.CharacterView, error)
	Waifu(ctx context.Context, telegramID, characterID int64) (gameserver.CharacterView, error)
	Summon(ctx context.Context, telegramID int64, premium bool) (gameserver.SummonResult, error)
	SetFavorite(ctx context.Context, telegramID, characterID int64, favorite bool) error
	Activate(ctx context.Context, telegramID, characterID int64) error

	Events() []gameserver.EventView
	Participate(ctx context.Context, telegramID, characterID int64, eventID string) (gameserver.ParticipationResult, error)
	OpenOffer(ctx context.Context, telegramID int64) (event.Offer, error)
	AcceptOffer(ctx context.Context, telegramID int64, offerID string, characterID int64) (gameserver.ParticipationResult, error)
	DeclineOffer(ctx context.Context, telegramID int64, offerID string) (event.Offer, error)
	StartGroupEvent(ctx context.Context, chatID int64, eventID string) (event.GroupEvent, error)
	GroupEvent(id string) (event.GroupEvent, bool)
	RespondGroup(ctx context.Context, telegramID int64, groupID string, characterID int64, accept bool) (event.GroupEvent, error)
	FinalizeGroup(ctx context.Context, groupID string) (event.GroupResult, error)

	Skills(ctx context.Context, telegramID int64) ([]gameserver.SkillView, int, error)
	UpgradeSkill(ctx context.Context, telegramID int64, skillID string) (gameserver.SkillView, error)

	Chat(ctx context.Context, telegramID int64, username string, chatID int64) (gameserver.ChatOutcome, error)
	ClearWaifus(ctx context.Context) (int64, error)
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// Health backs GET /health; nil always reports ok.
	Health HealthFunc
	// AdminTokenHash is the bcrypt hash of the admin token. Empty disables
	// the admin routes.
	AdminTokenHash []byte
}

// Handler serves the HTTP API.
type Handler struct {
	game Game
	opts Options
}

// NewRouter builds the gin engine with every route and middleware.
//
// Precondition: game must be non-nil; opts.Logger and opts.Metrics must be non-nil.
func NewRouter(game Game, opts Options) *gin.Engine {
	h := &Handler{game: game, opts: opts}

	r := gin.New()
	r.Use(RequestID(), Logger(opts.Logger), Recovery(opts.Logger), Metrics(opts.Metrics))

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{})))

	user := r.Group("/api", TelegramUser())
	user.GET("/me", h.me)
	user.GET("/waifus", h.listWaifus)
	user.GET("/waifus/:id", h.getWaifu)
	user.POST("/summon", h.summon)
	user.POST("/waifus/:id/favorite", h.favorite)
	user.POST("/waifus/:id/activate", h.activate)
	user.GET("/events", h.listEvents)
	user.POST("/waifus/:id/events/:event", h.participate)
	user.POST("/offers", h.openOffer)
	user.POST("/offers/:id/accept", h.acceptOffer)
	user.POST("/offers/:id/decline", h.declineOffer)
	user.POST("/group-events", h.startGroup)
	user.GET("/group-events/:id", h.getGroup)
	user.POST("/group-events/:id/respond", h.respondGroup)
	user.GET("/skills", h.listSkills)
	user.POST("/skills/:id/upgrade", h.upgradeSkill)

	internal := r.Group("/internal")
	internal.POST("/chat", h.chat)
	internal.POST("/group-events/:id/finalize", h.finalizeGroup)

	admin := r.Group("/admin", AdminAuth(opts.AdminTokenHash, opts.Logger))
	admin.DELETE("/waifus", h.clearWaifus)

	return r
}

func (h *Handler) health(c *gin.Context) {
	if h.opts.Health != nil {
		if err := h.opts.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

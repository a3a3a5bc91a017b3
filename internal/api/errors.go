package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/gameserver"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

var statusByError = []struct {
	err    error
	status int
}{
	{postgres.ErrUserNotFound, http.StatusNotFound},
	{postgres.ErrCharacterNotFound, http.StatusNotFound},
	{gameserver.ErrNotOwner, http.StatusNotFound},
	{event.ErrEventNotFound, http.StatusNotFound},
	{event.ErrOfferNotFound, http.StatusNotFound},
	{event.ErrNotOfferOwner, http.StatusNotFound},
	{skill.ErrUnknownSkill, http.StatusNotFound},
	{event.ErrOfferExpired, http.StatusConflict},
	{event.ErrOfferResolved, http.StatusConflict},
	{event.ErrGroupClosed, http.StatusConflict},
	{postgres.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{skill.ErrNotEnoughPoints, http.StatusUnprocessableEntity},
	{skill.ErrMaxLevel, http.StatusUnprocessableEntity},
	{event.ErrNotInvited, http.StatusUnprocessableEntity},
	{event.ErrNoEvents, http.StatusUnprocessableEntity},
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail writes err as a JSON error. Internal errors are recorded on the gin
// context for the logger and answered with a generic message.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		abort(c, status, "internal error")
		return
	}
	abort(c, status, err.Error())
}

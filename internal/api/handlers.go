package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cory-johannsen/waifu/internal/render"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// bind decodes an optional JSON body into dst. An empty body leaves dst unchanged.
func bind(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) me(c *gin.Context) {
	p, err := h.game.Profile(c.Request.Context(), telegramID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) listWaifus(c *gin.Context) {
	list, err := h.game.Waifus(c.Request.Context(), telegramID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waifus": list})
}

func (h *Handler) getWaifu(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.game.Waifu(c.Request.Context(), telegramID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waifu": v, "card": render.Card(v)})
}

type summonRequest struct {
	Premium bool `json:"premium"`
}

func (h *Handler) summon(c *gin.Context) {
	var req summonRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.game.Summon(c.Request.Context(), telegramID(c), req.Premium)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"summon": res, "card": render.Card(res.Character)})
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

func (h *Handler) favorite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req favoriteRequest
	if !bind(c, &req) {
		return
	}
	fav := req.Favorite == nil || *req.Favorite
	if err := h.game.SetFavorite(c.Request.Context(), telegramID(c), id, fav); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": fav})
}

func (h *Handler) activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.game.Activate(c.Request.Context(), telegramID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": true})
}

func (h *Handler) listEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": h.game.Events()})
}

func (h *Handler) participate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.game.Participate(c.Request.Context(), telegramID(c), id, c.Param("event"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res, "message": render.Participation(res)})
}

func (h *Handler) openOffer(c *gin.Context) {
	o, err := h.game.OpenOffer(c.Request.Context(), telegramID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type waifuRequest struct {
	WaifuID int64 `json:"waifu_id" binding:"required,gt=0"`
}

func (h *Handler) acceptOffer(c *gin.Context) {
	var req waifuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.game.AcceptOffer(c.Request.Context(), telegramID(c), c.Param("id"), req.WaifuID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res, "message": render.Participation(res)})
}

func (h *Handler) declineOffer(c *gin.Context) {
	o, err := h.game.DeclineOffer(c.Request.Context(), telegramID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type startGroupRequest struct {
	ChatID int64  `json:"chat_id" binding:"required"`
	Event  string `json:"event"`
}

func (h *Handler) startGroup(c *gin.Context) {
	var req startGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ev, err := h.game.StartGroupEvent(c.Request.Context(), req.ChatID, req.Event)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *Handler) getGroup(c *gin.Context) {
	ev, ok := h.game.GroupEvent(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, "group event not found")
		return
	}
	c.JSON(http.StatusOK, ev)
}

type respondGroupRequest struct {
	WaifuID int64 `json:"waifu_id"`
	Accept  bool  `json:"accept"`
}

func (h *Handler) respondGroup(c *gin.Context) {
	var req respondGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Accept && req.WaifuID <= 0 {
		abort(c, http.StatusBadRequest, "waifu_id is required to accept")
		return
	}
	ev, err := h.game.RespondGroup(c.Request.Context(), telegramID(c), c.Param("id"), req.WaifuID, req.Accept)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) finalizeGroup(c *gin.Context) {
	res, err := h.game.FinalizeGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res, "message": render.GroupResult(res)})
}

func (h *Handler) listSkills(c *gin.Context) {
	skills, points, err := h.game.Skills(c.Request.Context(), telegramID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills, "skill_points": points})
}

func (h *Handler) upgradeSkill(c *gin.Context) {
	v, err := h.game.UpgradeSkill(c.Request.Context(), telegramID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type chatRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required,gt=0"`
	Username   string `json:"username"`
	ChatID     int64  `json:"chat_id"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	out, err := h.game.Chat(c.Request.Context(), req.TelegramID, req.Username, req.ChatID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out, "message": render.Chat(out)})
}

func (h *Handler) clearWaifus(c *gin.Context) {
	n, err := h.game.ClearWaifus(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kazini/internal/model"
	httputil "kazini/internal/pkg/http"
)

// ListConversations 分页获取会话列表
// @Summary      会话列表
// @Description  按最近活跃时间倒序分页返回当前用户的会话，每页 20 条
// @Tags         导师对话
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int                     false  "页码，从 1 开始"
// @Success      200   {object}  model.ConversationPage  "会话分页"
// @Failure      401   {object}  ErrorResponse           "未认证"
// @Failure      404   {object}  ErrorResponse           "页码无效"
// @Failure      500   {object}  ErrorResponse           "服务器内部错误"
// @Router       /api/chatbot/history/ [get]
func (h *Handler) ListConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			httputil.AbortWithError(c, http.StatusNotFound, httputil.CodeNotFound, "Invalid page.")
			return
		}
		page = p
	}

	list, err := h.sessionService.ListConversations(c.Request.Context(), userID, page)
	if err != nil {
		writeError(c, err, "Invalid page.")
		return
	}

	resp := model.ConversationPage{
		Count:   list.Total,
		Results: list.Items,
	}
	if list.HasNext() {
		resp.Next = pageURL(c, page+1)
	}
	if list.HasPrevious() {
		resp.Previous = pageURL(c, page-1)
	}
	c.JSON(http.StatusOK, resp)
}

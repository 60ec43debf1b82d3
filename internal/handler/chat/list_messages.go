package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httputil "kazini/internal/pkg/http"
)

// ListMessages 获取会话的全部消息
// @Summary      会话消息
// @Description  按创建时间升序返回会话中的所有消息
// @Tags         导师对话
// @Produce      json
// @Security     BearerAuth
// @Param        conversation_id  path      int             true  "会话ID"
// @Success      200              {array}   chat.Message    "消息列表"
// @Failure      401              {object}  ErrorResponse   "未认证"
// @Failure      404              {object}  ErrorResponse   "会话不存在"
// @Failure      500              {object}  ErrorResponse   "服务器内部错误"
// @Router       /api/chatbot/conversations/{conversation_id}/messages/ [get]
func (h *Handler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var uri ConversationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httputil.AbortWithError(c, http.StatusNotFound, httputil.CodeNotFound, "Conversation not found")
		return
	}

	msgs, err := h.sessionService.ListMessages(c.Request.Context(), userID, uri.ConversationID)
	if err != nil {
		writeError(c, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

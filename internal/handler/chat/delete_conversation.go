package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kazini/internal/model"
	httputil "kazini/internal/pkg/http"
)

// DeleteConversation 删除会话
// @Summary      删除会话
// @Description  删除当前用户的会话及其全部消息
// @Tags         导师对话
// @Produce      json
// @Security     BearerAuth
// @Param        conversation_id  path      int                    true  "会话ID"
// @Success      200              {object}  model.MessageResponse  "删除成功"
// @Failure      401              {object}  ErrorResponse          "未认证"
// @Failure      404              {object}  ErrorResponse          "会话不存在"
// @Failure      500              {object}  ErrorResponse          "服务器内部错误"
// @Router       /api/chatbot/conversations/{conversation_id}/ [delete]
func (h *Handler) DeleteConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var uri ConversationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httputil.AbortWithError(c, http.StatusNotFound, httputil.CodeNotFound, "Not found")
		return
	}

	if err := h.sessionService.DeleteConversation(c.Request.Context(), userID, uri.ConversationID); err != nil {
		writeError(c, err, "Not found")
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "deleted"})
}

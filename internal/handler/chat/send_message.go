package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kazini/internal/model"
	httputil "kazini/internal/pkg/http"
	chatsvc "kazini/internal/service/chat"
)

// SendMessage 发送消息并获取导师回复
// @Summary      发送消息
// @Description  向导师发送一条消息；不传 conversation_id 或会话不属于当前用户时新建会话。生成失败时返回兜底回复
// @Tags         导师对话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.ChatRequest   true  "消息内容"
// @Success      200      {object}  model.ChatResponse  "导师回复"
// @Failure      400      {object}  ErrorResponse       "消息为空"
// @Failure      401      {object}  ErrorResponse       "未认证"
// @Failure      429      {object}  ErrorResponse       "超过每日消息上限"
// @Failure      500      {object}  ErrorResponse       "服务器内部错误"
// @Router       /api/chatbot/ [post]
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.AbortWithError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, "Invalid request body", err.Error())
		return
	}

	turn := &chatsvc.TurnRequest{
		UserID:         userID,
		Text:           req.Message,
		ConversationID: req.ConversationID,
	}
	if req.MaxTokens != nil {
		turn.MaxTokens = *req.MaxTokens
	}

	result, err := h.sessionService.HandleTurn(c.Request.Context(), turn)
	if err != nil {
		writeError(c, err, "Conversation not found")
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		Reply:          result.Reply,
		ConversationID: result.ConversationID,
		MessageID:      result.MessageID,
	})
}

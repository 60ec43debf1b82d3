package chat

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"kazini/internal/model"
	"kazini/internal/model/chat"
	httputil "kazini/internal/pkg/http"
)

const invalidFeedback = -1

// Feedback 对助手消息进行评价
// @Summary      消息反馈
// @Description  记录对消息的反馈，只接受 0 或 1，重复提交覆盖旧值
// @Tags         导师对话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        conversation_id  path      int                    true  "会话ID"
// @Param        message_id       path      int                    true  "消息ID"
// @Param        request          body      model.FeedbackRequest  true  "反馈值 0 或 1"
// @Success      200              {object}  model.MessageResponse  "保存成功"
// @Failure      400              {object}  ErrorResponse          "反馈值无效"
// @Failure      401              {object}  ErrorResponse          "未认证"
// @Failure      404              {object}  ErrorResponse          "会话或消息不存在"
// @Failure      500              {object}  ErrorResponse          "服务器内部错误"
// @Router       /api/chatbot/conversations/{conversation_id}/messages/{message_id}/feedback/ [post]
func (h *Handler) Feedback(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var uri MessageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httputil.AbortWithError(c, http.StatusNotFound, httputil.CodeNotFound, "Message not found")
		return
	}

	// 请求体无法解析时按无效取值处理，由 service 在归属检查之后返回 400
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Str("path", c.FullPath()).Msg("feedback body not parsed, treating value as invalid")
	}

	err := h.sessionService.SetFeedback(c.Request.Context(), userID, uri.ConversationID, uri.MessageID, parseFeedback(req.Feedback))
	if err != nil {
		writeError(c, err, "Message not found")
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: "Feedback saved"})
}

// parseFeedback 只接受 JSON 字面量 0 / 1 或字符串 "0" / "1"
func parseFeedback(raw []byte) int {
	switch string(bytes.TrimSpace(raw)) {
	case "0", `"0"`:
		return chat.FeedbackNegative
	case "1", `"1"`:
		return chat.FeedbackPositive
	default:
		return invalidFeedback
	}
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridebot/internal/domain"
	"ridebot/internal/service"
)

// telegramUpdate mirrors the subset of the Bot API update payload the
// orchestrator consumes.
type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Message struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

// WebhookHandler receives Telegram webhook posts.
type WebhookHandler struct {
	orchestrator *service.Orchestrator
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(orchestrator *service.Orchestrator) *WebhookHandler {
	return &WebhookHandler{orchestrator: orchestrator}
}

// Handle handles POST /webhook. A malformed body is acknowledged with
// 200 so the transport stops redelivering garbage; a processing failure
// returns 5xx so the event is redelivered and retried.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload telegramUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	update, ok := payload.toDomain()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.orchestrator.HandleUpdate(c.Request.Context(), update); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (p *telegramUpdate) toDomain() (domain.Update, bool) {
	eventID := strconv.FormatInt(p.UpdateID, 10)

	switch {
	case p.Message != nil:
		return domain.Update{
			Kind:    domain.UpdateKindMessage,
			EventID: eventID,
			ChatID:  p.Message.Chat.ID,
			Text:    p.Message.Text,
		}, true
	case p.CallbackQuery != nil:
		return domain.Update{
			Kind:         domain.UpdateKindCallback,
			EventID:      eventID,
			ChatID:       p.CallbackQuery.Message.Chat.ID,
			MessageID:    p.CallbackQuery.Message.MessageID,
			CallbackData: p.CallbackQuery.Data,
		}, true
	default:
		return domain.Update{}, false
	}
}

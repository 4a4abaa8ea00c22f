package http

import (
	"net/http"

	"estate_crm/internal/entities"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// StartInterview opens or resumes the caller's broker interview
func (h *Handler) StartInterview(c *gin.Context) {
	view, err := h.interview.Start(c.Request.Context(), c.GetInt(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RespondInterview(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Answer    string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: session_id is required")
		return
	}
	answer := TruncateString(SanitizeString(req.Answer), MaxMessageLength)
	view, err := h.interview.Respond(c.Request.Context(), c.GetInt(ctxUserID), req.SessionID, answer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetInterview(c *gin.Context) {
	view, err := h.interview.Get(c.Request.Context(), c.GetInt(ctxUserID), c.GetString(ctxRole), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleWebMessage runs one web chat message through the intake chatbot and
// returns the reply in the response body
func (h *Handler) HandleWebMessage(c *gin.Context) {
	var payload struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
		Message     string `json:"message" binding:"required"`
		Name        string `json:"name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request: phone_number and message are required")
		return
	}
	content := SanitizeString(payload.Message)
	if len(content) > MaxMessageLength {
		badRequest(c, "Message too long")
		return
	}

	reply, err := h.messages.ProcessMessage(c.Request.Context(), entities.Message{
		From:     payload.PhoneNumber,
		Content:  content,
		Platform: entities.SourceWeb,
		Name:     SanitizeString(payload.Name),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entities.Response{Content: reply})
}

// WhatsAppQR returns the pairing QR code as a PNG
func (h *Handler) WhatsAppQR(c *gin.Context) {
	if h.whatsapp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}
	code := h.whatsapp.QR()
	if code == "" {
		if h.whatsapp.IsConnected() {
			c.JSON(http.StatusOK, gin.H{"connected": true, "phone": h.whatsapp.PhoneNumber()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "QR code not yet available, retry shortly"})
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) WhatsAppStatus(c *gin.Context) {
	if h.whatsapp == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":   true,
		"connected": h.whatsapp.IsConnected(),
		"phone":     h.whatsapp.PhoneNumber(),
		"name":      h.whatsapp.Name(),
		"has_qr":    h.whatsapp.QR() != "",
	})
}

// WhatsAppLogout unlinks the paired device and starts a new pairing
func (h *Handler) WhatsAppLogout(c *gin.Context) {
	if h.whatsapp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}
	if err := h.whatsapp.Logout(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("whatsapp logout")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

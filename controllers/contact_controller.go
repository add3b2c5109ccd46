package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MrN7King/BookstorePhase1-sub001/models"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// ContactController relays the storefront contact form by email.
type ContactController struct {
	mailer    utils.MailSender
	recipient string
	logger    *zap.Logger
}

// NewContactController creates a new ContactController instance.
func NewContactController(mailer utils.MailSender, recipient string, logger *zap.Logger) *ContactController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactController{mailer: mailer, recipient: recipient, logger: logger}
}

// SendMessage validates the form and forwards it to the shop inbox.
func (c *ContactController) SendMessage(ctx *gin.Context) {
	var req models.ContactMessage
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ErrorDetails(ctx, http.StatusBadRequest, "Invalid contact form", err.Error())
		return
	}

	name := utils.SanitizeHeader(req.Name)
	email := strings.TrimSpace(req.Email)
	message := utils.SanitizePlain(req.Message)
	if name == "" || message == "" {
		utils.ErrorDetails(ctx, http.StatusBadRequest, "Invalid contact form", "name and message must contain text")
		return
	}
	subject := utils.SanitizeHeader(req.Subject)
	if subject == "" {
		subject = "New message from " + name
	}

	if c.mailer == nil || c.recipient == "" {
		utils.ErrorDetails(ctx, http.StatusInternalServerError, "Failed to send message", utils.ErrMailNotConfigured.Error())
		return
	}
	mail := utils.Mail{
		To:      c.recipient,
		ReplyTo: email,
		Subject: "[Contact] " + subject,
		Body:    fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", name, email, message),
	}
	if err := c.mailer.Send(ctx.Request.Context(), mail); err != nil {
		c.logger.Error("contact mail failed", zap.String("reply_to", email), zap.Error(err))
		utils.ErrorDetails(ctx, http.StatusInternalServerError, "Failed to send message", err.Error())
		return
	}
	utils.Success(ctx, utils.MessageBody{Success: true, Message: "Message sent successfully"})
}

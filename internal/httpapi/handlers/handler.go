package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/config"
	"github.com/appdotbuilder/party-planner-bot/internal/email"
	"github.com/appdotbuilder/party-planner-bot/internal/httpapi/middleware"
	"github.com/appdotbuilder/party-planner-bot/internal/planner"
	"github.com/appdotbuilder/party-planner-bot/internal/store/rabbitmq"
	"github.com/appdotbuilder/party-planner-bot/internal/store/redisstore"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Log    *logrus.Logger
	Svc    *planner.Service
	Mailer *email.Sender
	Rabbit *rabbitmq.Publisher // nil when async turns are disabled
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher, log *logrus.Logger) *Handler {
	repo := planner.NewRepo(db)
	svc := planner.NewService(repo, rds, log, time.Duration(cfg.SnapshotCacheTTL)*time.Second)
	mailer := email.NewSender(email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})
	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Log:    log,
		Svc:    svc,
		Mailer: mailer,
		Rabbit: pub,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.Ok(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func userIDFromContext(c *gin.Context) string {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return ""
	}
	uid, _ := v.(string)
	return uid
}

func failNotFound(c *gin.Context, msg string) {
	common.Fail(c, http.StatusNotFound, 40401, msg)
}

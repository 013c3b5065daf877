package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/config"
	"github.com/appdotbuilder/party-planner-bot/internal/httpapi/handlers"
	"github.com/appdotbuilder/party-planner-bot/internal/httpapi/middleware"
	"github.com/appdotbuilder/party-planner-bot/internal/store/rabbitmq"
	"github.com/appdotbuilder/party-planner-bot/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, pub, log)

	r.GET("/ping", h.Ping)
	r.POST("/auth/guest", h.IssueGuestToken)

	api := r.Group("/")
	api.Use(middleware.AuthOptional(cfg.JWTSecret))

	api.POST("/conversations", h.StartConversation)
	api.GET("/conversations/:conversation_id", h.GetConversation)
	api.PATCH("/conversations/:conversation_id", h.UpdateConversation)

	api.POST("/conversations/:conversation_id/messages", h.SendMessage)
	api.GET("/conversations/:conversation_id/messages", h.GetConversationHistory)
	api.POST("/conversations/:conversation_id/bot-response", h.ProcessBotResponse)

	api.POST("/conversations/:conversation_id/turns/async", h.ProcessBotResponseAsync)
	api.GET("/turn-jobs/:job_id", h.GetTurnJob)

	api.POST("/conversations/:conversation_id/itineraries", h.CreateItinerary)
	api.GET("/conversations/:conversation_id/itineraries", h.GetItineraries)
	api.POST("/conversations/:conversation_id/itineraries/:itinerary_id/email", h.EmailItinerary)

	return r
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/internal/app"
	"ejc.kiosk/go-api/pkg/telemetry"
)

const healthPath = "/api/health"

type handler struct {
	svc    *app.Services
	logger *zap.Logger
}

// NewEngine builds the gin engine with every kiosk route registered.
func NewEngine(svc *app.Services) *gin.Engine {
	if svc.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(ZapLogger(svc.Logger), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     svc.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", idempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := &handler{svc: svc, logger: svc.Logger}
	h.routes(router)
	return router
}

// Handler is the engine wrapped for tracing, ready for http.Server.
func Handler(svc *app.Services) http.Handler {
	return telemetry.Middleware(NewEngine(svc), healthPath)
}

func (h *handler) routes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/catalog", h.GetCatalog)

		cart := api.Group("/cart")
		cart.Use(SessionMiddleware(h.svc.Config))
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddToCart)
			cart.POST("/items/:id/increment", h.IncrementCartItem)
			cart.POST("/items/:id/decrement", h.DecrementCartItem)
			cart.DELETE("/items/:id", h.RemoveFromCart)
		}

		api.POST("/checkout", SessionMiddleware(h.svc.Config), h.Checkout)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.SignUp)
			auth.POST("/signin", h.SignIn)
			auth.POST("/signout", RequireAuth(h.svc.Auth), h.SignOut)
			auth.GET("/me", RequireAuth(h.svc.Auth), h.Me)
		}

		admin := api.Group("/admin")
		admin.Use(RequireAuth(h.svc.Auth))
		{
			admin.GET("/products", h.GetAllProducts)
			admin.POST("/products", h.CreateProduct)
			admin.POST("/products/:id/toggle", h.ToggleProduct)
			admin.POST("/products/:id/stock", h.AdjustStock)
		}

		kitchen := api.Group("/kitchen")
		kitchen.Use(RequireAuth(h.svc.Auth))
		{
			kitchen.GET("/orders", h.GetPendingOrders)
			kitchen.GET("/stream", h.StreamPendingOrders)
			kitchen.POST("/orders/:id/deliver", h.DeliverOrder)
			kitchen.PUT("/orders/:id", h.RenameOrder)
			kitchen.DELETE("/orders/:id", h.DeleteOrder)
		}

		api.GET("/history", RequireAuth(h.svc.Auth), h.GetHistory)

		dashboard := api.Group("/dashboard")
		dashboard.Use(RequireAuth(h.svc.Auth))
		{
			dashboard.GET("", h.GetDashboard)
			dashboard.GET("/export.csv", h.ExportCSV)
			dashboard.GET("/insights", h.GetInsights)
		}
	}
}

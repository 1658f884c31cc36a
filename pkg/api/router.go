package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"price-tracker-go/pkg/api/handlers"
	"price-tracker-go/pkg/api/middleware"
	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/services"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Catalog *services.CatalogService
	Tasks   *services.ScrapeTaskManager
	Ping    func(ctx context.Context) error
	Metrics *metrics.Metrics
	Logger  *zap.SugaredLogger
	// APIKey protects /api when set
	APIKey string
}

func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.RequestLogger(log.Named("http"), deps.Metrics))
	router.Use(middleware.CORS())

	// Health check
	health := handlers.HealthCheck(deps.Ping)
	router.GET("/health", health)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// API routes
	api := router.Group("/api")
	api.GET("/health", health)
	api.Use(middleware.RequireAPIKey(deps.APIKey))
	{
		api.GET("/tiendas", handlers.ListStores(deps.Catalog))
		api.POST("/tiendas", handlers.CreateStore(deps.Catalog))

		api.GET("/categorias", handlers.ListCategories(deps.Catalog))
		api.POST("/categorias", handlers.CreateCategory(deps.Catalog))

		api.GET("/marcas", handlers.ListBrands(deps.Catalog))
		api.POST("/marcas", handlers.CreateBrand(deps.Catalog))

		products := api.Group("/productos")
		{
			products.GET("", handlers.ListProducts(deps.Catalog))
			products.POST("", handlers.CreateProduct(deps.Catalog))
			products.GET("/:id", handlers.GetProduct(deps.Catalog))
			products.GET("/:id/precio-actual", handlers.CurrentPrice(deps.Catalog))
			products.POST("/:id/scraping-precio", handlers.StartScrape(deps.Tasks))
		}

		api.GET("/historial-precios", handlers.ListPriceHistory(deps.Catalog))
		api.POST("/historial-precios", handlers.AddPriceHistory(deps.Catalog))

		api.GET("/scraping/estado/:tarea_id", handlers.ScrapeStatus(deps.Tasks))
	}

	return router
}

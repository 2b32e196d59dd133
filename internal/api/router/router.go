package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/kmazurek/birthday-greeter/internal/api/handlers/birthday"
	"github.com/kmazurek/birthday-greeter/internal/middlewares"
)

func New(handler *birthday.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		b := api.Group("/birthdays")
		{
			b.POST("/", handler.Create)
			b.GET("/", handler.GetAll)
			b.DELETE("/:id", handler.Delete)
		}

		api.GET("/cron-test", handler.CronTest)
	}

	e.StaticFile("/", "./public/index.html")

	return e
}

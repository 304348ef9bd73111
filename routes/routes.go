package routes

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/controllers"
	"github.com/MENO-App/BE-MENO/middlewares"
	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/services"
	"github.com/MENO-App/BE-MENO/utils"
)

// Options carries the collaborators the router is built from. Sinks left nil
// are skipped.
type Options struct {
	Tokens          *utils.TokenIssuer
	Log             logrus.FieldLogger
	DefaultSchoolID string
	AuthRateLimit   float64
	AuthRateBurst   int

	Mailer    utils.Mailer
	Topic     services.TopicPublisher
	Snapshots utils.SnapshotStore
	Hub       *services.RealtimeHub
}

var registerTagNames sync.Once

// validation errors report json field names instead of Go field names
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}

func SetupRouter(db *gorm.DB, opts Options) *gin.Engine {
	useJSONFieldNames()
	if opts.Hub == nil {
		opts.Hub = services.NewRealtimeHub(opts.Log)
	}

	schoolSvc := services.NewSchoolService(db, opts.Log)
	userSvc := services.NewUserService(db, opts.Log, opts.DefaultSchoolID)
	allergySvc := services.NewAllergyService(db, opts.Log)
	events := &services.MenuEvents{Hub: opts.Hub, Topic: opts.Topic, Snapshots: opts.Snapshots, Log: opts.Log}
	menuSvc := services.NewMenuService(db, opts.Log, events)
	planSvc := services.NewMealPlanService(db, opts.Log)
	authSvc := services.NewAuthService(db, opts.Log, opts.Tokens, opts.Mailer)

	authCtl := controllers.NewAuthController(authSvc)
	adminCtl := controllers.NewAdminController(authSvc)
	schoolCtl := controllers.NewSchoolController(schoolSvc, userSvc)
	userCtl := controllers.NewUserController(userSvc)
	meCtl := controllers.NewCurrentUserController(userSvc, allergySvc)
	allergyCtl := controllers.NewAllergyController(allergySvc)
	menuCtl := controllers.NewMenuController(menuSvc)
	planCtl := controllers.NewMealPlanController(planSvc)
	rtCtl := controllers.NewRealtimeController(opts.Hub, userSvc)

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(opts.Log), middlewares.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(middlewares.MetricsHandler()))

	// Public auth routes
	auth := r.Group("/auth")
	if opts.AuthRateLimit > 0 {
		auth.Use(middlewares.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst, opts.Log).Handler())
	}
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware(opts.Tokens))

	admin := middlewares.RequireRoles(models.RoleAdmin)
	kitchen := middlewares.RequireRoles(models.RoleKitchen, models.RoleAdmin)

	{
		api.GET("/schools", schoolCtl.List)
		api.GET("/schools/:id", schoolCtl.Get)
		api.POST("/schools", admin, schoolCtl.Create)
		api.DELETE("/schools/:id", admin, schoolCtl.Delete)
		api.GET("/schools/:id/users", admin, schoolCtl.ListUsers)
	}

	{
		api.GET("/users/me", meCtl.Get)
		api.PUT("/users/me", meCtl.Update)
		api.PUT("/users/me/email", authCtl.UpdateEmail)
		api.POST("/users/me/change-password", authCtl.ChangePassword)
		api.GET("/users/me/allergies", meCtl.ListAllergies)
		api.PUT("/users/me/allergies", meCtl.ReplaceAllergies)
		api.POST("/users/me/allergies", meCtl.UpsertAllergy)
	}

	{
		api.POST("/users", admin, userCtl.Create)
		api.GET("/users/:id", admin, userCtl.Get)
		api.PUT("/users/:id", admin, userCtl.Update)
		api.DELETE("/users/:id", admin, userCtl.Delete)
	}

	{
		api.GET("/allergies", allergyCtl.List)
		api.GET("/allergies/:id", allergyCtl.Get)
		api.POST("/allergies", admin, allergyCtl.Create)
		api.GET("/users/:id/allergies", allergyCtl.ListForUser)
		api.POST("/users/:id/allergies", allergyCtl.AddForUser)
		api.DELETE("/users/:id/allergies/:allergyId", allergyCtl.RemoveForUser)
	}

	{
		api.GET("/schools/:id/menuweeks", menuCtl.ListWeeks)
		api.GET("/schools/:id/menuweeks/:year/:week", menuCtl.FindWeek)
		api.GET("/menuweeks/:id", menuCtl.GetWeek)
		api.POST("/schools/:id/menuweeks", kitchen, menuCtl.CreateWeek)
		api.POST("/menuweeks/:id/publish", kitchen, menuCtl.Publish)
		api.POST("/menuweeks/:id/items", kitchen, menuCtl.AddItem)
		api.PUT("/menuitems/:id", kitchen, menuCtl.UpdateItem)
		api.DELETE("/menuitems/:id", kitchen, menuCtl.DeleteItem)
		api.PUT("/menuitems/:id/allergens", kitchen, menuCtl.SetAllergens)
	}

	{
		api.PUT("/users/:id/mealplans/:date", planCtl.Set)
		api.GET("/users/:id/mealplans/:date", planCtl.Get)
		api.GET("/users/:id/mealplans", planCtl.List)
	}

	{
		api.GET("/admin/users", admin, adminCtl.ListUsers)
		api.GET("/admin/users/:id/roles", admin, adminCtl.Roles)
		api.POST("/admin/users/:id/roles/:role", admin, adminCtl.AddRole)
		api.DELETE("/admin/users/:id/roles/:role", admin, adminCtl.RemoveRole)
	}

	api.GET("/ws/menus", rtCtl.MenusWS)

	return r
}

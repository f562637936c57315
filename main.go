package main

import (
	"github.com/Zazh/dpa-lms-sub000/config"
	controllers "github.com/Zazh/dpa-lms-sub000/controllers/course"
	"github.com/Zazh/dpa-lms-sub000/database"
	courseRoutes "github.com/Zazh/dpa-lms-sub000/routers/courseRoutes"
	"github.com/Zazh/dpa-lms-sub000/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"log"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	registry := services.NewDefaultRegistry(database.Database.Db)
	controllers.Init(registry)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	courseRoutes.SetupCourseRoutes(app)
	courseRoutes.SetupAdminCourseRoutes(app)

	// Background sweep closes quiz attempts that outlived their time limit.
	sweeper := services.InitializeAttemptSweeper(registry.Quizzes)
	defer sweeper.Stop()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}

package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/nikhilesh121/luvrix-realtime/internal/gateway"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName: "Luvrix Realtime Gateway",
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	db, err := gateway.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Redis is optional; the gateway runs uncached without it.
	var cache *gateway.Cache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisDB := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if parsed, err := strconv.Atoi(dbStr); err == nil {
				redisDB = parsed
			}
		}
		cache = gateway.NewCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
		if err := cache.Ping(); err != nil {
			log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
			cache = nil
		} else {
			log.Println("Redis cache connected successfully")
		}
	}

	store := gateway.NewStore(db, cache)
	srv := gateway.NewServer(store)
	srv.Register(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Gateway listening on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

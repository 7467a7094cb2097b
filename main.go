package main

import (
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/router"

	"github.com/gofiber/fiber/v2"
)

// Used only to init swagger docs.
// swag init output ./docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil, nil)
}

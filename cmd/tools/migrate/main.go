package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/cart"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/users"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&users.User{},
		&middleware.Session{},
		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&catalog.HomeSection{},
		&cart.Cart{},
		&cart.CartItem{},
		&payments.ProvisionalOrder{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderEvent{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migration complete")
}

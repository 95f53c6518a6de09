package database

import (
	"fmt"
	"log"

	config "ec-payment/configs"
	"ec-payment/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	var err error
	dsn := config.Config("DATABASE_URL")

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
}

func Migrate() {
	err := DB.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	if err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}

	// AutoMigrate cannot express a partial index, and the pending-payment
	// uniqueness rule must hold at the database even when two creates for
	// the same order race past the application-level check.
	err = DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_pending_order
		ON payments (order_id) WHERE status = 'pending'`).Error
	if err != nil {
		log.Fatalf("🔥 Failed to create pending payment index: %v", err)
	}

	fmt.Println("✅ Database migration successful")
}

// SeedOrders loads a handful of reference orders for development
// environments. Idempotent: skipped when any order already exists.
func SeedOrders() {
	var count int64
	if err := DB.Model(&models.Order{}).Count(&count).Error; err != nil {
		log.Fatalf("🔥 Failed to check for existing orders: %v", err)
	}
	if count > 0 {
		log.Println("Orders already seeded.")
		return
	}

	note1 := "Customer requested express delivery"
	addr1 := "123 Main St, New York, NY 10001"
	note2 := "Gift wrapping requested"
	addr2 := "456 Oak Ave, Los Angeles, CA 90210"

	orders := []models.Order{
		{
			ID:              "ord_001",
			CustomerID:      "cust_001",
			TotalAmount:     9999,
			Currency:        "USD",
			Status:          models.OrderStatusDelivered,
			ShippingAddress: &addr1,
			Notes:           &note1,
			Items: []models.OrderItem{
				{Name: "Wireless Headphones", Quantity: 1, Price: 9999},
			},
		},
		{
			ID:              "ord_002",
			CustomerID:      "cust_002",
			TotalAmount:     14950,
			Currency:        "USD",
			Status:          models.OrderStatusProcessing,
			ShippingAddress: &addr2,
			Notes:           &note2,
			Items: []models.OrderItem{
				{Name: "Cotton T-Shirt", Quantity: 2, Price: 2999},
				{Name: "Jeans", Quantity: 1, Price: 8952},
			},
		},
	}

	for i := range orders {
		if err := DB.Create(&orders[i]).Error; err != nil {
			log.Fatalf("🔥 Failed to seed order %s: %v", orders[i].ID, err)
		}
	}

	log.Println("✅ Reference orders seeded successfully")
}

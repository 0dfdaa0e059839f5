package main

import (
	"context"
	"fmt"
	"os"

	"guesthouse-booking/config"
	"guesthouse-booking/database"
	"guesthouse-booking/database/seeders"
	"guesthouse-booking/repository"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run tools/migrate.go migrate                         - Create or update the schema")
	fmt.Println("  go run tools/migrate.go seed-rooms                      - Insert the sample rooms")
	fmt.Println("  go run tools/migrate.go create-admin <user> <password>  - Create or reset an admin")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	cfg, err := config.Read()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🚀 Running database migrations...")
	db, err := database.InitDB(cfg)
	if err != nil {
		fmt.Printf("❌ Migration failed: %v\n", err)
		os.Exit(1)
	}
	defer database.Close(db)
	store := repository.NewGormStore(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "migrate":
		fmt.Println("✅ Migration completed successfully!")

	case "seed-rooms":
		n, err := seeders.SeedRooms(ctx, store)
		if err != nil {
			fmt.Printf("❌ Seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ %d room(s) inserted\n", n)

	case "create-admin":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		if err := seeders.SeedAdmin(ctx, store, os.Args[2], os.Args[3]); err != nil {
			fmt.Printf("❌ Failed to create admin: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Admin saved")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

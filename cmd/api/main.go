package main

import (
	"log"

	"github.com/joho/godotenv"

	"go-next-lms/backend/internal/database"
	"go-next-lms/backend/internal/routes"
)

func main() {
	// .env は任意（本番では環境変数を直接渡す）
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// DB接続はここで開き、ここで閉じる。各モジュールには注入する。
	db := database.InitDB()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Fatal: Failed to migrate database: %v", err)
	}

	r := routes.SetupRouter(db)

	log.Println("Server listening on port 8080...")
	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}

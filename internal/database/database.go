package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// GetDSN は環境変数からMySQL接続文字列 (DSN) を構築します。
func GetDSN() string {
	// main.go で godotenv.Load() が呼び出されるため、ここでは省略
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, name)
}

// InitDB はデータベース接続を初期化します。
// 返された *sql.DB は呼び出し側（main）がクローズします。
func InitDB() *sql.DB {
	dsn := GetDSN()
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Fatal: Failed to open database connection: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("Fatal: Failed to ping database: %v", err)
	}
	log.Println("Successfully connected to MySQL database!")
	return db
}

// Migrate は必要なテーブルを作成します（存在する場合は何もしません）。
func Migrate(db *sql.DB) error {
	createUsersSQL := `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'USER',
			reset_token VARCHAR(512) NULL,
			reset_token_used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`
	if _, err := db.Exec(createUsersSQL); err != nil {
		return fmt.Errorf("could not create users table: %w", err)
	}

	createCoursesSQL := `
		CREATE TABLE IF NOT EXISTS courses (
			id INT AUTO_INCREMENT PRIMARY KEY,
			teacher_id INT NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (teacher_id) REFERENCES users(id) ON DELETE CASCADE
		);`
	if _, err := db.Exec(createCoursesSQL); err != nil {
		return fmt.Errorf("could not create courses table: %w", err)
	}

	return nil
}

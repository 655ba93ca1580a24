package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/pg"
)

func main() {
	dsn := os.Getenv("PMS_PG_DSN")
	if dsn == "" {
		log.Fatal("PMS_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := pg.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourusername/survival-quiz/internal/config"
	pgRepo "github.com/yourusername/survival-quiz/internal/repository/postgres"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/pkg/database"
)

// Загружает библиотеку вопросов из YAML в PostgreSQL:
//
//	seed -file config/questions.example.yaml
func main() {
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	file := flag.String("file", "config/questions.example.yaml", "YAML-файл с вопросами")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	questions, err := service.ParseQuestionsYAML(data, cfg.Game.DefaultTimeLimitSec)
	if err != nil {
		log.Fatalf("Invalid question library: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgRepo.NewQuestionRepo(db).CreateBatch(ctx, questions); err != nil {
		log.Fatalf("Failed to insert questions: %v", err)
	}
	log.Printf("Загружено вопросов: %d", len(questions))
}

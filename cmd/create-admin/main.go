package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/database"
	"github.com/noah-isme/classroom-api/pkg/logger"
	"github.com/noah-isme/classroom-api/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	users := service.NewUserService(repository.NewUserRepository(db), validator.New(), logr)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create admin user ===")
	fullName := prompt(reader, "Full name: ")
	email := prompt(reader, "Email: ")

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		logr.Fatal("failed to read password", zap.Error(err))
	}

	user, err := users.Register(ctx, dto.RegisterUserRequest{
		Email:    email,
		Password: string(raw),
		FullName: fullName,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		logr.Fatal("failed to create admin", zap.Error(err))
	}
	fmt.Printf("created admin %s (%s) with id %s\n", user.FullName, user.Email, user.ID)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

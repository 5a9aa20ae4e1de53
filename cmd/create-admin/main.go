package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/database"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
	"github.com/sistec/enquiry-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userService := service.NewUserService(repository.NewUserRepository(pool), cfg.BcryptCost)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	password, err := readPassword("Enter Password: ")
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	// bcrypt limits the password in bytes, not characters.
	if len(password) < 6 || len(password) > service.MaxPasswordBytes {
		fmt.Printf("Error: Password must be 6 to %d bytes long\n", service.MaxPasswordBytes)
		return
	}
	confirm, err := readPassword("Confirm Password: ")
	if err != nil || confirm != password {
		fmt.Println("Error: Passwords do not match")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	admin, err := userService.Create(ctx, service.NewUser{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			fmt.Printf("Error: an account with email %s already exists\n", email)
			return
		}
		if errors.Is(err, service.ErrInvalidText) {
			fmt.Println("Error: Name and email must not contain NUL characters")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", admin.Name, admin.Email, admin.ID)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return string(b), err
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/hal9ai/h9login/internal/config"
	"github.com/hal9ai/h9login/server"
	"github.com/hal9ai/h9login/server/attempts"
	"github.com/hal9ai/h9login/users"
	fakeuserrepo "github.com/hal9ai/h9login/users/repofake"
)

const (
	attemptMaxAge     = time.Hour
	attemptPruneEvery = 5 * time.Minute
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	attemptRepo := attempts.NewInMemoryRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo()
	if err := seedUsers(userRepo, c.GetSeedUsersFile()); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	srv, err := server.New(c, attemptRepo, userRepo)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	pruneCtx, stopPruning := context.WithCancel(context.Background())
	defer stopPruning()
	go pruneAttempts(pruneCtx, attemptRepo)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// seedUsers loads login accounts from a JSON file. Passwords are plaintext
// in the file and hashed on load; the file is meant for development and
// small deployments.
func seedUsers(repo users.Repo, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seeds []struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Photo    string `json:"photo"`
	}
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, seed := range seeds {
		hash, err := users.HashPassword(seed.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", seed.Email, err)
		}
		if err := repo.Upsert(&users.User{
			Username:     seed.Username,
			Email:        seed.Email,
			PasswordHash: hash,
			Photo:        seed.Photo,
			CreatedAt:    time.Now(),
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
	}
	log.Printf("Seeded %d users\n", len(seeds))
	return nil
}

// pruneAttempts sweeps stale login attempts so abandoned tokens don't pile up.
func pruneAttempts(ctx context.Context, repo *attempts.InMemoryRepo) {
	ticker := time.NewTicker(attemptPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := repo.Prune(time.Now().Add(-attemptMaxAge)); removed > 0 {
				log.Printf("Pruned %d stale login attempts\n", removed)
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

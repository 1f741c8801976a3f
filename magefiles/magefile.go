//go:build mage

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bin/alta"

// Build tidies deps, then compiles to ./bin/alta.
func Build() error {
	mg.Deps(Tidy)
	fmt.Println(">> Building server binary...")
	return sh.Run("go", "build", "-o", binary, "./cmd/server")
}

// Run builds then executes the binary.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server on :" + port() + " ...")
	return sh.Run("./" + binary)
}

// Dev starts the server via go run.
func Dev() error {
	fmt.Println(">> Dev mode: go run ./cmd/server ...")
	cmd := exec.Command("go", "run", "./cmd/server", "serve")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "PORT="+port())
	return cmd.Run()
}

// Templates writes blank spreadsheet templates into TEMPLATE_DIR when they
// are missing, so the form can be tried without the real ones.
func Templates() error {
	fmt.Println(">> Writing blank templates...")
	return sh.RunV("go", "run", "./cmd/server", "templates", "init")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test runs all unit tests with the race detector.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and the local SQLite DB.
func Clean() error {
	fmt.Println(">> Cleaning...")
	os.RemoveAll("bin")
	db := os.Getenv("DB_PATH")
	if db == "" {
		db = "alta.db"
	}
	return sh.Rm(db)
}

// Install builds and installs the binary to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/server")
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}

func init() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("migrate %s: %v", os.Args[1], err)
	}
}

func databaseURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		env.GetEnv("DB_USER", "getyoursite"),
		env.GetEnv("DB_PASSWORD", "getyoursite"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "getyoursite"),
	)
}

func run(command string, args []string) error {
	log.Infof("Connexion à la base %s@%s:%s/%s",
		env.GetEnv("DB_USER", "getyoursite"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "getyoursite"),
	)

	m, err := migrate.New("file://"+env.GetEnv("MIGRATIONS_PATH", "migrations"), databaseURL())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warnf("close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		return report(m.Up(), "Migrations appliquées")

	case "down":
		return report(m.Steps(-1), "Dernière migration annulée")

	case "goto":
		if len(args) < 1 {
			return errors.New("version manquante")
		}
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version invalide: %w", err)
		}
		return report(m.Migrate(uint(version)), fmt.Sprintf("Migration vers la version %d effectuée", version))

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("Aucune migration appliquée")
			return nil
		}
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		log.Infof("Version actuelle: %d%s", version, suffix)
		return nil
	}

	printUsage()
	return fmt.Errorf("commande inconnue %q", command)
}

func report(err error, okMsg string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("Aucun changement: la base est à jour")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info(okMsg)
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/migrate [command]")
	fmt.Println("Commandes:")
	fmt.Println("  up     - applique les migrations en attente")
	fmt.Println("  down   - annule la dernière migration")
	fmt.Println("  goto N - migre vers la version N")
	fmt.Println("  status - affiche la version courante")
}

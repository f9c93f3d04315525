// Package cli holds the insightctl operator subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bharathmeg/InsightHub/internal/config"
	"github.com/bharathmeg/InsightHub/internal/infra"

	"github.com/google/subcommands"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// env is what every command needs from the outside world.
type env struct {
	cfg *config.Config
	out io.Writer
	// driver and dsn override the configured database when set.
	driver, dsn string
}

func (e *env) setDBFlags(f *flag.FlagSet) {
	f.StringVar(&e.driver, "driver", "", "database driver (postgres|sqlite); defaults to DATABASE_DRIVER")
	f.StringVar(&e.dsn, "dsn", "", "database DSN; defaults to DATABASE_URL")
}

func (e *env) openDB(ctx context.Context) (*gorm.DB, error) {
	driver, dsn := e.cfg.DatabaseDriver, e.cfg.DatabaseURL
	if e.driver != "" {
		driver = e.driver
	}
	if e.dsn != "" {
		dsn = e.dsn
	}
	return infra.NewDatabase(ctx, driver, dsn)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func fail(w io.Writer, err error) subcommands.ExitStatus {
	fmt.Fprintln(w, "error:", err)
	return subcommands.ExitFailure
}

// Commands returns every insightctl subcommand bound to cfg.
func Commands(cfg *config.Config, out io.Writer) []subcommands.Command {
	newEnv := func() env { return env{cfg: cfg, out: out} }
	return []subcommands.Command{
		&migrateCmd{env: newEnv()},
		&seedAdminCmd{env: newEnv()},
		&exportCmd{env: newEnv()},
		&hashCmd{env: newEnv()},
		&deadLettersCmd{env: newEnv()},
	}
}

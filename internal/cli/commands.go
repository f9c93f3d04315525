package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/repository"
	"github.com/bharathmeg/InsightHub/internal/worker"

	"github.com/google/subcommands"
	"golang.org/x/crypto/bcrypt"
)

// ── migrate ───────────────────────────────────────────────────────────────────

type migrateCmd struct{ env }

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `insightctl migrate [-driver <driver>] [-dsn <dsn>]

  Brings the schema up to date: goose migrations on postgres, AutoMigrate on sqlite.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) { c.setDBFlags(f) }

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.openDB(ctx)
	if err != nil {
		return fail(c.out, err)
	}
	defer closeDB(db)
	fmt.Fprintln(c.out, "schema up to date")
	return subcommands.ExitSuccess
}

// ── seed-admin ────────────────────────────────────────────────────────────────

type seedAdminCmd struct {
	env
	email   string
	company string
}

func (*seedAdminCmd) Name() string     { return "seed-admin" }
func (*seedAdminCmd) Synopsis() string { return "create a verified Admin account without an OTP round trip" }
func (*seedAdminCmd) Usage() string {
	return `insightctl seed-admin -email <email> -company <company>

  Prompts for the password. Fails if the company already has a different Admin.
`
}

func (c *seedAdminCmd) SetFlags(f *flag.FlagSet) {
	c.setDBFlags(f)
	f.StringVar(&c.email, "email", "", "admin email")
	f.StringVar(&c.company, "company", "", "company name")
}

func (c *seedAdminCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	email := strings.ToLower(strings.TrimSpace(c.email))
	company := strings.TrimSpace(c.company)
	if email == "" || company == "" {
		fmt.Fprint(c.out, c.Usage())
		return subcommands.ExitUsageError
	}

	password, err := promptPassword(c.out, "Password for "+email+": ")
	if err != nil {
		return fail(c.out, err)
	}
	if len(password) < 6 {
		return fail(c.out, errors.New("password must be at least 6 characters"))
	}

	db, err := c.openDB(ctx)
	if err != nil {
		return fail(c.out, err)
	}
	defer closeDB(db)

	if err := seedAdmin(ctx, repository.NewAccountRepository(db), email, company, password, c.cfg.BcryptCost); err != nil {
		return fail(c.out, err)
	}
	fmt.Fprintf(c.out, "admin %s ready for %s\n", email, company)
	return subcommands.ExitSuccess
}

func seedAdmin(ctx context.Context, repo repository.AccountRepository, email, company, password string, cost int) error {
	exists, err := repo.AdminExists(ctx, company, email)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("company %q already has an admin", company)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	if err := repo.UpsertPending(ctx, &model.Account{Email: email, Role: model.RoleAdmin, Company: company}); err != nil {
		return err
	}
	a, err := repo.FindByIdentity(ctx, email, model.RoleAdmin, company)
	if err != nil {
		return err
	}
	now := time.Now()
	a.PasswordHash = string(hash)
	a.PendingPasswordHash = ""
	a.VerifiedAt = &now
	a.ClearOTP()
	return repo.Update(ctx, a)
}

// ── export ────────────────────────────────────────────────────────────────────

type exportCmd struct {
	env
	company string
	format  string
	output  string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a company's sales as csv, xlsx or pdf" }
func (*exportCmd) Usage() string {
	return `insightctl export -company <company> [-format csv|xlsx|pdf] [-o <file>]

  Writes to stdout unless -o is given.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.setDBFlags(f)
	f.StringVar(&c.company, "company", "", "company name")
	f.StringVar(&c.format, "format", infra.FormatCSV, "export format")
	f.StringVar(&c.output, "o", "", "output file")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	company := strings.TrimSpace(c.company)
	if company == "" {
		fmt.Fprint(c.out, c.Usage())
		return subcommands.ExitUsageError
	}

	db, err := c.openDB(ctx)
	if err != nil {
		return fail(c.out, err)
	}
	defer closeDB(db)

	sales, err := repository.NewSaleRepository(db).ListByCompany(ctx, company)
	if err != nil {
		return fail(c.out, err)
	}

	var w io.Writer = c.out
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fail(c.out, err)
		}
		defer f.Close()
		w = f
	}
	if err := infra.WriteSales(w, c.format, company, sales, c.cfg.ReportCurrency, time.Now()); err != nil {
		return fail(c.out, err)
	}
	return subcommands.ExitSuccess
}

// ── hash ──────────────────────────────────────────────────────────────────────

type hashCmd struct{ env }

func (*hashCmd) Name() string              { return "hash" }
func (*hashCmd) Synopsis() string          { return "print the bcrypt hash of a prompted password" }
func (*hashCmd) Usage() string             { return "insightctl hash\n" }
func (*hashCmd) SetFlags(_ *flag.FlagSet) {}

func (c *hashCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := promptPassword(os.Stderr, "Password: ")
	if err != nil {
		return fail(c.out, err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), c.cfg.BcryptCost)
	if err != nil {
		return fail(c.out, err)
	}
	fmt.Fprintln(c.out, string(h))
	return subcommands.ExitSuccess
}

// ── dead-letters ──────────────────────────────────────────────────────────────

type deadLettersCmd struct {
	env
	redisURL string
	limit    int64
}

func (*deadLettersCmd) Name() string     { return "dead-letters" }
func (*deadLettersCmd) Synopsis() string { return "list export mail jobs that exhausted their retries" }
func (*deadLettersCmd) Usage() string {
	return `insightctl dead-letters [-redis <url>] [-n <limit>]

  Newest first. Defaults to REDIS_URL.
`
}

func (c *deadLettersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.redisURL, "redis", "", "redis URL; defaults to REDIS_URL")
	f.Int64Var(&c.limit, "n", 20, "max entries, 0 for all")
}

func (c *deadLettersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	url := c.cfg.RedisURL
	if c.redisURL != "" {
		url = c.redisURL
	}
	if url == "" {
		return fail(c.out, errors.New("no redis configured"))
	}
	rdb, err := infra.NewRedis(ctx, url)
	if err != nil {
		return fail(c.out, err)
	}
	defer rdb.Close()

	letters, err := worker.DeadLetters(ctx, rdb, worker.QueueEmail, c.limit)
	if err != nil {
		return fail(c.out, err)
	}
	if len(letters) == 0 {
		fmt.Fprintln(c.out, "no dead letters")
		return subcommands.ExitSuccess
	}
	for _, dl := range letters {
		fmt.Fprintf(c.out, "%s\t%s\t%s\t%s\t%s\tattempts=%d\t%s\n",
			dl.FailedAt.Format(time.RFC3339), dl.Type, dl.Company, dl.Recipient, dl.Format, dl.Attempts, dl.Reason)
	}
	return subcommands.ExitSuccess
}

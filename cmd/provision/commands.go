package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/secret"
)

// defaultUses is the starting balance of a new account.
const defaultUses = 100

// accountStore is the subset of the repository the commands need.
type accountStore interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AddUses(ctx context.Context, key string, n int) (int, error)
	GetAccount(ctx context.Context, key string) (*model.Account, error)
}

// storeOpener connects to the account store. The returned func releases it.
type storeOpener func(ctx context.Context, databaseURL string) (accountStore, func(), error)

// accountOutput is the JSON form printed by create and show.
type accountOutput struct {
	Key       string `json:"key,omitempty"`
	UsesLeft  int    `json:"uses_left"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

const flagDatabaseURL = "database-url"

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagDatabaseURL,
		Usage:   "PostgreSQL connection string",
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Value: "plain",
		Usage: "Output format (plain or json)",
	}
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "key",
		Usage:    "API key of the account",
		Required: true,
	}
}

func newApp(stdin io.Reader, stdout io.Writer, open storeOpener) *cli.Command {
	withStore := func(ctx context.Context, cmd *cli.Command, fn func(context.Context, accountStore) error) error {
		databaseURL := cmd.String(flagDatabaseURL)
		if databaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		store, closeStore, err := open(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer closeStore()

		return fn(ctx, store)
	}

	return &cli.Command{
		Name:   "provision",
		Usage:  "Manage gateway accounts and sealed secrets",
		Writer: stdout,
		Reader: stdin,
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account and print its API key",
				Flags: []cli.Flag{
					databaseFlag(),
					formatFlag(),
					&cli.StringFlag{Name: "first-name", Usage: "Account holder's first name"},
					&cli.StringFlag{Name: "last-name", Usage: "Account holder's last name"},
					&cli.StringFlag{Name: "email", Usage: "Contact e-mail", Required: true},
					&cli.IntFlag{Name: "uses", Value: defaultUses, Usage: "Initial number of uses"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					uses := int(cmd.Int("uses"))
					if uses < 0 {
						return fmt.Errorf("uses must not be negative, got %d", uses)
					}

					key, err := auth.GenerateAPIKey()
					if err != nil {
						return fmt.Errorf("generate api key: %w", err)
					}

					account := &model.Account{
						APIKey:    key,
						UsesLeft:  uses,
						FirstName: strings.TrimSpace(cmd.String("first-name")),
						LastName:  strings.TrimSpace(cmd.String("last-name")),
						Email:     strings.TrimSpace(cmd.String("email")),
						CreatedAt: time.Now().UTC(),
					}

					err = withStore(ctx, cmd, func(ctx context.Context, store accountStore) error {
						return store.CreateAccount(ctx, account)
					})
					if err != nil {
						return fmt.Errorf("create account: %w", err)
					}

					return printAccount(stdout, cmd.String("format"), account, true)
				},
			},
			{
				Name:  "topup",
				Usage: "Grant more uses to an account",
				Flags: []cli.Flag{
					databaseFlag(),
					keyFlag(),
					&cli.IntFlag{Name: "uses", Usage: "Number of uses to add", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var balance int
					err := withStore(ctx, cmd, func(ctx context.Context, store accountStore) error {
						var err error
						balance, err = store.AddUses(ctx, cmd.String("key"), int(cmd.Int("uses")))
						return err
					})
					if err != nil {
						return fmt.Errorf("top up %s: %w", model.KeyHint(cmd.String("key")), err)
					}

					_, err = fmt.Fprintln(stdout, balance)
					return err
				},
			},
			{
				Name:  "show",
				Usage: "Print an account's profile and balance",
				Flags: []cli.Flag{databaseFlag(), keyFlag(), formatFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var account *model.Account
					err := withStore(ctx, cmd, func(ctx context.Context, store accountStore) error {
						var err error
						account, err = store.GetAccount(ctx, cmd.String("key"))
						return err
					})
					if err != nil {
						return fmt.Errorf("show %s: %w", model.KeyHint(cmd.String("key")), err)
					}

					return printAccount(stdout, cmd.String("format"), account, false)
				},
			},
			{
				Name:  "seal-secret",
				Usage: "Seal the secret read from stdin for DRIVE_LIST_FILE",
				Description: `Reads the provider secret from stdin and prints one sealed line.
Append the line to the secret file; the gateway opens the last line.
Without --sealing-key a new key is generated and printed first.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "sealing-key",
						Usage:   "Base64 sealing key",
						Sources: cli.EnvVars("DRIVE_LIST_KEY"),
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					raw, err := io.ReadAll(stdin)
					if err != nil {
						return fmt.Errorf("read secret: %w", err)
					}
					plaintext := strings.TrimSpace(string(raw))
					if plaintext == "" {
						return errors.New("no secret on stdin")
					}

					key := cmd.String("sealing-key")
					if key == "" {
						if key, err = secret.GenerateKey(); err != nil {
							return err
						}
						fmt.Fprintf(stdout, "DRIVE_LIST_KEY=%s\n", key)
					}

					sealed, err := secret.Seal(key, plaintext)
					if err != nil {
						return err
					}

					_, err = fmt.Fprintln(stdout, sealed)
					return err
				},
			},
		},
	}
}

func printAccount(w io.Writer, format string, account *model.Account, withKey bool) error {
	out := accountOutput{
		UsesLeft:  account.UsesLeft,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Email:     account.Email,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
	if withKey {
		out.Key = account.APIKey
	}

	switch strings.ToLower(format) {
	case "plain":
		if withKey {
			_, err := fmt.Fprintln(w, out.Key)
			return err
		}
		_, err := fmt.Fprintf(w, "%s %s <%s> uses_left=%d\n", out.FirstName, out.LastName, out.Email, out.UsesLeft)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("invalid format %q; use plain or json", format)
	}
}

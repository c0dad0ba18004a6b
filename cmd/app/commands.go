package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/itemdesk/internal"
	"github.com/starford/itemdesk/internal/app"
	"github.com/starford/itemdesk/internal/notify"
	"github.com/starford/itemdesk/internal/render"
	"github.com/starford/itemdesk/internal/session"
)

var errSignedOut = errors.New("not signed in, run `itemdesk login` first")

// open builds a controller whose notifications are printed to stderr.
func open(ctx context.Context, cmd *cli.Command) (*app.Controller, render.Terminal, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, render.Terminal{}, err
	}
	loc, err := cfg.Render.Location()
	if err != nil {
		return nil, render.Terminal{}, err
	}
	term := render.Terminal{Location: loc}

	ctl, err := internal.Open(ctx,
		internal.WithConfig(cfg),
		internal.WithNotificationSink(func(n notify.Notification) {
			term.Notification(os.Stderr, string(n.Level), n.Message)
		}),
	)
	if err != nil {
		return nil, term, err
	}
	return ctl, term, nil
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("ITEMDESK_PASSWORD")},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the identity",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctl, _, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			return ctl.SignIn(ctx, cmd.String("username"), cmd.String("password"))
		},
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Register a new account",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctl, _, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			return ctl.SignUp(ctx, cmd.String("username"), cmd.String("password"))
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the remembered identity",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctl, _, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			return ctl.SignOut(ctx)
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Print the signed-in username",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctl, _, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			id := ctl.Current()
			if id == nil {
				return errSignedOut
			}
			fmt.Println(id.Username)
			return nil
		},
	}
}

func itemFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Item name", Required: required},
		&cli.StringFlag{Name: "description", Usage: "Item description", Required: required},
		&cli.StringFlag{Name: "category", Usage: "Optional category"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
	}
}

func formFromFlags(cmd *cli.Command, id string) render.FormState {
	return render.FormState{
		ID:          id,
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Category:    cmd.String("category"),
		Tags:        cmd.String("tags"),
	}
}

// signedIn opens a controller and refuses to continue without an identity.
func signedIn(ctx context.Context, cmd *cli.Command) (*app.Controller, render.Terminal, error) {
	ctl, term, err := open(ctx, cmd)
	if err != nil {
		return nil, term, err
	}
	if ctl.View() != session.Authenticated {
		return nil, term, errSignedOut
	}
	return ctl, term, nil
}

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", errors.New("item id argument is required")
	}
	return id, nil
}

func itemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "Manage items in the remote collection",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List items, optionally filtered",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive filter"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ctl, term, err := signedIn(ctx, cmd)
					if err != nil {
						return err
					}
					return term.Items(os.Stdout, ctl.Search(cmd.String("query")))
				},
			},
			{
				Name:      "get",
				Usage:     "Show one item",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					ctl, term, err := signedIn(ctx, cmd)
					if err != nil {
						return err
					}
					it, err := ctl.Get(ctx, id)
					if err != nil {
						return err
					}
					return term.Item(os.Stdout, it)
				},
			},
			{
				Name:  "create",
				Usage: "Create an item",
				Flags: itemFlags(true),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ctl, term, err := signedIn(ctx, cmd)
					if err != nil {
						return err
					}
					it, err := ctl.SubmitForm(ctx, formFromFlags(cmd, ""))
					if err != nil {
						return err
					}
					return term.Item(os.Stdout, it)
				},
			},
			{
				Name:      "update",
				Usage:     "Update an item; empty --category or --tags keep the stored value",
				ArgsUsage: "<id>",
				Flags:     itemFlags(true),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					ctl, term, err := signedIn(ctx, cmd)
					if err != nil {
						return err
					}
					it, err := ctl.SubmitForm(ctx, formFromFlags(cmd, id))
					if err != nil {
						return err
					}
					return term.Item(os.Stdout, it)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an item",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					ctl, _, err := signedIn(ctx, cmd)
					if err != nil {
						return err
					}
					return ctl.Delete(ctx, id)
				},
			},
		},
	}
}

// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command jetctl is a device-side client for the JetStream user service.
//
// Usage:
//
//	jetctl register -email a@x.com -password secret123 -name Ann
//	jetctl login -email a@x.com -password secret123
//	jetctl social -provider google.com -token <id-token>
//	jetctl refresh | profile | status | logout
//	jetctl update -name "Ann B" -avatar https://img.example/a.png
//
// The session is kept in a file readable only by the current user.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/jetstream/internal/client"
)

// settings are read from the environment before flags.
type settings struct {
	APIURL      string `env:"JETSTREAM_API_URL" envDefault:"http://localhost:3001"`
	SessionFile string `env:"JETSTREAM_SESSION_FILE"`
	Debug       bool   `env:"JETSTREAM_DEBUG"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(stderr, "jetctl: %v\n", err)
		return 2
	}

	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: jetctl <register|login|social|refresh|profile|update|status|logout> [flags]")
		return 2
	}

	if cfg.SessionFile == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintf(stderr, "jetctl: %v\n", err)
			return 1
		}
		cfg.SessionFile = path
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store := client.NewFileStore(cfg.SessionFile)
	manager, err := client.NewManager(client.New(cfg.APIURL, store), store, client.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "jetctl: %v\n", err)
		return 1
	}

	result, err := dispatch(ctx, manager, args[0], args[1:], stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "jetctl: %v\n", err)
		return 1
	}

	if result != nil {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(stderr, "jetctl: %v\n", err)
			return 1
		}
	}
	return 0
}

func dispatch(ctx context.Context, manager *client.Manager, command string, args []string, stderr io.Writer) (any, error) {
	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	flags.SetOutput(stderr)

	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	name := flags.String("name", "", "display name")
	avatar := flags.String("avatar", "", "avatar URL")
	signInProvider := flags.String("provider", "", "upstream sign-in method (google.com, apple.com, password)")
	token := flags.String("token", "", "identity token issued by the provider")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	switch command {
	case "register":
		return manager.Register(ctx, *email, *password, *name)
	case "login":
		return manager.Login(ctx, *email, *password)
	case "social":
		return manager.ExchangeAssertion(ctx, *signInProvider, *token)
	case "refresh":
		return nil, manager.Refresh(ctx)
	case "profile":
		return manager.Profile(ctx)
	case "update":
		var update client.ProfileUpdate
		flags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				update.Name = name
			case "avatar":
				update.AvatarURL = avatar
			}
		})
		return manager.UpdateProfile(ctx, update)
	case "status":
		status := map[string]any{"state": manager.State().String()}
		if user := manager.User(); user != nil {
			status["user"] = user
		}
		if manager.State() == client.StateAuthenticated {
			status["access_token_expired"] = manager.AccessTokenExpired()
		}
		return status, nil
	case "logout":
		return nil, manager.SignOut()
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

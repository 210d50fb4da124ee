package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-saverr/internal/config"
	"github.com/jrsteele09/go-saverr/internal/logging"
	"github.com/jrsteele09/go-saverr/mockbackend"
	"github.com/rs/zerolog/log"
)

const usage = `usage: saverr [-stats] <command> [args]

backend:
  serve-mock [-user email:password] [-access-ttl 1h]

session:
  signup <name> <email> <password>
  confirm <email> <code>
  resend <email>
  login <email> <password>
  forgot <email>
  reset <email> <code> <new-password>
  whoami
  refresh
  logout

accounts:
  link [public-token]
  accounts
  sync [account-id]
  transactions [-days n] [account-id]
  recent
  spending
  balance <account-id>
  unlink <account-id>
`

func main() {
	c := config.New()
	log.Logger = logging.New(c.GetEnv(), c.GetLogLevel())

	flags := flag.NewFlagSet("saverr", flag.ExitOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	stats := flags.Bool("stats", false, "print backend request counts after the command")
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	var err error
	if args[0] == "serve-mock" {
		err = serveMock(c, args[1:])
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = runCommand(ctx, c, os.Stdout, args, *stats)
		stop()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("saverr")
	}
}

func serveMock(c config.Config, args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	flags := flag.NewFlagSet("serve-mock", flag.ContinueOnError)
	seedUser := flags.String("user", "", "confirmed user to create, as email:password")
	accessTTL := flags.Duration("access-ttl", time.Hour, "access token lifetime")
	if err := flags.Parse(args); err != nil {
		return err
	}

	backend := mockbackend.New(mockbackend.WithAccessTokenTTL(*accessTTL))
	if *seedUser != "" {
		email, password, ok := strings.Cut(*seedUser, ":")
		if !ok {
			return fmt.Errorf("-user must be email:password")
		}
		if _, err := backend.AddUser(email, password, "", true); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
	}

	displayAppname(os.Stdout, c.GetAppName())
	for _, route := range backend.Routes() {
		log.Debug().Str("route", route).Msg("registered")
	}

	server := &http.Server{Addr: c.GetPort(), Handler: backend}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(server) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("mock backend listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("mock backend stopped")
	return nil
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/server"
	"github.com/jrsteele09/go-auth-login/sessions"
	"github.com/jrsteele09/go-auth-login/token"
	"github.com/jrsteele09/go-auth-login/users"
	fakeuserrepo "github.com/jrsteele09/go-auth-login/users/repofake"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx := context.Background()
	sessionRepo, closeRepo, err := newSessionRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	cookies, err := newCookieSigner(c)
	if err != nil {
		return err
	}

	logins, err := server.NewLogins(ctx, c, sessionRepo)
	if err != nil {
		return err
	}

	handler, err := server.New(c, sessionRepo, cookies, users.NewDirectory(fakeuserrepo.NewFakeUserRepo()), logins)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func newSessionRepo(ctx context.Context, c config.Config) (sessions.Repo, func(), error) {
	switch c.GetSessionStore() {
	case config.SessionStoreMemory:
		return sessions.NewInMemoryRepo(), func() {}, nil
	case config.SessionStoreRedis:
		repo, err := sessions.NewRedisRepo(ctx, sessions.RedisConfig{
			Addr:      c.GetRedisAddr(),
			Username:  c.GetRedisUsername(),
			Password:  c.GetRedisPassword(),
			DB:        c.GetRedisDB(),
			KeyPrefix: c.GetRedisKeyPrefix(),
			TTL:       c.GetMaxSessionAge(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", c.GetSessionStore())
	}
}

func newCookieSigner(c config.Config) (*token.CookieSigner, error) {
	secret := c.GetCookieSecret()
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate cookie secret: %w", err)
		}
		secret = hex.EncodeToString(b)
		log.Warn().Msg("COOKIE_SECRET is not set, sessions will not survive a restart")
	}
	signer, err := token.NewHMACSigner(secret)
	if err != nil {
		return nil, err
	}
	return token.NewCookieSigner(signer, c.GetMaxSessionAge()), nil
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
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
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

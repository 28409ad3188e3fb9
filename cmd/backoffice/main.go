package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liderplast/backoffice/config"
	"github.com/liderplast/backoffice/internal/adminapi"
	"github.com/liderplast/backoffice/internal/app"
	"github.com/liderplast/backoffice/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "develop"

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database, then seed it")
	token    = flag.String("token", "", "issue an operator token for the given username and exit")
	role     = flag.String("role", webserver.RoleOperator, "role of the issued token (ADMIN or OPERATOR)")
	ttl      = flag.Duration("ttl", 12*time.Hour, "lifetime of the issued token")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg := config.LoadConfig(*conffile)

	if *token != "" {
		t, err := webserver.IssueToken(cfg.Web.Secret, *token, *role, *ttl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(t)
		return
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		application.Seed()
		return
	}

	webserver.Init(application)
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(webserver.Listen)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webserver.Echo().Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Errorf("backoffice stopped: %s", err.Error())
		os.Exit(1)
	}
	zap.S().Info("backoffice stopped")
}

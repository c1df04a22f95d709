package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/digistore/config"
	"github.com/talkincode/digistore/internal/adminapi"
	"github.com/talkincode/digistore/internal/app"
	"github.com/talkincode/digistore/internal/web"
	"github.com/talkincode/digistore/internal/webserver"
)

var (
	h         = flag.Bool("h", false, "help usage")
	showVer   = flag.Bool("v", false, "show version")
	conffile  = flag.String("c", "", "config yaml file")
	initdb    = flag.Bool("initdb", false, "drop and recreate all database tables")
	printconf = flag.Bool("printconf", false, "print the effective config and exit")
)

var version = "develop"

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}
	if *h {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.LoadConfig(*conffile)
	if *printconf {
		cfg.Print()
		os.Exit(0)
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database tables recreated")
		return
	}

	webserver.Init(application)
	adminapi.Init()
	if err := web.Init(); err != nil {
		zap.S().Fatalf("load templates: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(webserver.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.S().Info("shutting down web server")
		return webserver.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Errorf("digistore stopped: %v", err)
	}
}

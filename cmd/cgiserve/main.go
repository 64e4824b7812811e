package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gur-shatz/go-cgi/internal/cli"
	"github.com/gur-shatz/go-cgi/internal/color"
	"github.com/gur-shatz/go-cgi/internal/log"
	"github.com/gur-shatz/go-cgi/pkg/cgihost"
	"github.com/gur-shatz/go-cgi/pkg/config"
)

const shutdownTimeout = 5 * time.Second

func main() {
	color.Init()
	if err := run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	opts, err := cli.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Print(cli.Usage())
			return nil
		}
		return err
	}

	log.SetPrefix("[cgiserve]")
	log.Init(opts.Verbose)

	switch opts.Command {
	case cli.CommandInit:
		return runInit(opts.ConfigFile)
	case cli.CommandList:
		return runList(opts.ConfigFile, opts.Vars)
	}

	cfg, err := cgihost.LoadConfig(opts.ConfigFile, config.WithVars(opts.Vars))
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	log.Verbose("Config: %s", opts.ConfigFile)

	host, err := cgihost.New(cfg, log.Default())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println()
		log.Status("Shutting down...")
		cancel()
	}()

	go func() {
		if err := host.Watch(ctx); err != nil {
			log.Warn("script directory not watched, index is static: %v", err)
		}
	}()

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: host.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Status("Serving %d scripts from %s at %s%s/", len(host.Scripts()), cfg.CGIDir, cfg.Addr, cfg.Prefix)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}

func runList(configPath string, vars map[string]string) error {
	cfg, err := cgihost.LoadConfig(configPath, config.WithVars(vars))
	if err != nil {
		return err
	}
	host, err := cgihost.New(cfg, log.Default())
	if err != nil {
		return err
	}

	scripts := host.Scripts()
	for _, s := range scripts {
		if s.Interpreter != "" {
			fmt.Printf("%-40s %s (%s)\n", s.URL, s.Name, s.Interpreter)
		} else {
			fmt.Printf("%-40s %s\n", s.URL, s.Name)
		}
	}
	log.Success("%d scripts in %s", len(scripts), cfg.CGIDir)
	return nil
}

func runInit(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists (remove it first to regenerate)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(cgihost.DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}

	log.Success("Created %s", configPath)
	return nil
}

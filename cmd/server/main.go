package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnohosten/clara-db/pkg/server"
)

func main() {
	config := server.ConfigFromEnv()

	flag.StringVar(&config.Host, "host", config.Host, "listen address")
	flag.IntVar(&config.Port, "port", config.Port, "listen port")
	flag.StringVar(&config.DatabaseName, "database", config.DatabaseName, "database name")
	flag.StringVar(&config.Compression, "compression", config.Compression, "document compression: snappy, zstd or none")
	flag.BoolVar(&config.EnableGraphQL, "graphql", config.EnableGraphQL, "enable the /graphql endpoint")
	flag.Parse()

	srv, err := server.New(config)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

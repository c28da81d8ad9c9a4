package main

import (
	"log"
	"os"

	"github.com/thereayou/coursechat/internal/config"
	"github.com/thereayou/coursechat/internal/server"
)

func main() {
	cfg := config.Load()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Server init failed: %v", err)
	}

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("Server run error: %v", err)
		}
	}()

	code := srv.WaitForShutdown(cfg.ShutdownTimeout)
	log.Printf("Server exited with code: %d", code)
	os.Exit(code)
}

package main

import (
	"log"
	"os"

	"github.com/namhsc/tvtl-sub000/internal/app"
	"github.com/namhsc/tvtl-sub000/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg, os.Args[1:]); err != nil {
		log.Fatalf("tvtlauth: %v", err)
	}
}

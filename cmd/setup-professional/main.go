package main

import (
	"github.com/noah-isme/sma-report-card/internal/cli"
	"github.com/noah-isme/sma-report-card/internal/repository"
)

func main() {
	cli.Main(cli.Options{
		Use:   "setup-professional",
		Short: "Seed school collections and report cards, skipping documents that already exist",
		Mode:  repository.ModeCheckFirst,
	})
}

package main

import (
	"github.com/ManasDasri/PomStud/internal/cli"
	"github.com/ManasDasri/PomStud/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}

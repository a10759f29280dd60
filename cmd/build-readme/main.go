package main

import (
	"log"

	"github.com/keshon/server-herald/internal/command"
	_ "github.com/keshon/server-herald/internal/commands/core"
	"github.com/keshon/server-herald/internal/config"
	"github.com/keshon/server-herald/internal/docs"
)

func main() {
	if err := docs.UpdateReadme(command.DefaultRegistry, config.CategoryWeights, "README.md.tmpl", "README.md"); err != nil {
		log.Fatalf("[ERR] %v", err)
	}
}

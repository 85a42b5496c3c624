package main

import (
	_ "embed"

	"github.com/anchored-notes/anchored-sync-service/cmd"
)

//go:embed config/config.yaml
var c string

func main() {
	cmd.Execute(c)
}

package main

import (
	"github.com/humanbelnik/dinevote/internal/app"
	"github.com/humanbelnik/dinevote/internal/config"
)

func main() {
	app.Go(config.Load())
}

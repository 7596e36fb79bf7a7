package main

import (
	_ "github.com/eleven-am/vision-bridge/docs"
	"github.com/eleven-am/vision-bridge/internal/bootstrap"
)

// @title Vision Bridge API
// @version 1.0.0
// @description Streams camera observations from a vision model into a live voice agent conversation

// @BasePath /api/v1

func main() {
	bootstrap.Run()
}

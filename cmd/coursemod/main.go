package main

import (
	"errors"
	"os"

	cmd "github.com/MrSnakeDoc/coursemod/internal"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/middleware"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, middleware.ErrLogged) {
			logger.LogError("%v", err)
		}
		os.Exit(1)
	}
}

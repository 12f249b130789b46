package main

import (
	"taskboard-api/core/logger"
	"taskboard-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}

package utils

import (
	"strings"

	"go.uber.org/zap"
)

var Logger *zap.Logger

// InitLogger builds the process logger. "debug" selects the development config.
func InitLogger(level string) {
	var err error
	if strings.EqualFold(level, "debug") {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		InitLogger("")
	}
	return Logger
}

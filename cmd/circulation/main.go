package main

import (
	stdLog "log"

	"github.com/JaePyJs/CLMS-sub014/app"
	"github.com/JaePyJs/CLMS-sub014/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Print("load envs from .env ", err)
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
	)

	app.Run(cfg)
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/pflag"

	"file-manager-api/internal"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pflag.Parse()

	ctx := context.Background()

	app, err := internal.NewApp(ctx, *envFile)
	if err != nil {
		log.Fatalf("init app failed: %v", err)
	}
	defer app.Close()

	app.InitControllers()

	if err = app.Run(ctx); err != nil {
		app.Logger().Sugar().Errorf("filemanagerapi stopped with error: %v", err)
		os.Exit(1)
	}
}

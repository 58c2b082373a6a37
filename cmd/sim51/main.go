package main

import (
	"context"
	"log"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	app := NewApp(os.Stdout)
	err := newRootCmd(app).ExecuteContext(ctx)

	app.Close()
	stop()

	if err != nil {
		log.Fatal(err)
	}
}

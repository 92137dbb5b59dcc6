package main

import (
	"os"

	"github.com/GoProxyGuard/GoProxyGuard/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}

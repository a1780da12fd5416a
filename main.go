package main

import (
	"os"

	"github.com/GoAuthBridge/GoAuthBridge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	os.Exit(Execute())
}

package main

import (
	"log"

	"resonant/cmd/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"log"

	"github.com/mlorente/cv-screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

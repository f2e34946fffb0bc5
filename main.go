package main

import (
	"log"

	"github.com/interviewd/interviewd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"stockwatch/cmd/handlers"
)

func main() {
	handlers.Execute()
}

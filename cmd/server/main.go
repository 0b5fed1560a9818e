package main

import "hsdash/internal/app/server"

func main() {
	server.Run()
}

package main

import "github.com/ecmwf/gribjump/cmd/gribjump/cmd"

func main() {
	cmd.Execute()
}

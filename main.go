package main

import "github.com/foomo/contentexport/cmd"

func main() {
	cmd.Execute()
}

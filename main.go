package main

import "github.com/fakeyudi/limitedwip/cmd"

func main() {
	cmd.Execute()
}

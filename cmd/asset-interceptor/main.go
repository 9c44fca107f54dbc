package main

import cmd "github.com/rohmanhakim/asset-interceptor/internal/cli"

func main() {
	cmd.Execute()
}

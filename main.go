package main

import "github.com/kmkrofficial/signature/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/edadash/cmd"

func main() {
	cmd.Execute()
}

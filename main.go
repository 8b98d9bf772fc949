package main

import "github.com/openpredict/tradegate/cmd"

func main() {
	cmd.Execute()
}

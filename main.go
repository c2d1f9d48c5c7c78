package main

import "github.com/mselser95/onearb-wallet/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/OpenTraceLab/OpenTracePCI/cmd/otpci/cmd"

func main() {
	cmd.Execute()
}

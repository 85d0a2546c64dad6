package main

import "github.com/andresmejia3/emolens/cmd"

func main() {
	cmd.Execute()
}

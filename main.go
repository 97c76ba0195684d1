package main

import "github.com/apehbe/charity-backend/cmd"

func main() {
	cmd.Execute()
}

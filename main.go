package main

import "fieldservice-backend/cmd"

func main() {
	cmd.Execute()
}

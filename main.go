package main

import "github.com/andresmejia3/moodgate/cmd"

func main() {
	cmd.Execute()
}

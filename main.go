package main

import "github.com/ValentinKolb/shKV/cmd"

func main() {
	cmd.Execute()
}

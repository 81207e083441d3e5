/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/digestwatch/digestwatch/cmd"

func main() {
	cmd.Execute()
}

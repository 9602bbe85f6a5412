// ytaudio/main.go
package main

import "ytaudio/cmd"

func main() {
	cmd.Execute()
}

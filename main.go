package main

import "github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/cmd"

func main() {
	cmd.Execute()
}

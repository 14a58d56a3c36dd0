package main

import (
	"github.com/v-kiniv/imu/internal/cmd"
)

func main() {
	cmd.Execute()
}

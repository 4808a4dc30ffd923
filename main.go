package main

import "slamstrap/internal/slamstrap"

func main() {
	slamstrap.Main()
}

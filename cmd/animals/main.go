// Command animals manages the animals table migrations and the animals stored in it.
package main

import "github.com/aqasim81/animals/internal/cli"

func main() {
	cli.Execute()
}

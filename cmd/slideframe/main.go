package main

import (
	// import image formats to register them
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matjam/slideframe/internal/cli"
)

func main() {
	cli.Execute()
}

package main

import (
	"context"

	"github.com/bjulian5/syncbridge/cmd"
)

func main() {
	ctx := context.Background()
	cmd.Execute(ctx)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jpalmerr/msgboard/internal/client"
)

var demoMessages = []string{
	"Welcome to the board!",
	"Messages show up for everyone instantly.",
	"Try liking this one.",
}

// SeedDemoMessages posts a few messages to the board at baseURL and reacts
// to them, so a fresh demo has something to show.
func SeedDemoMessages(ctx context.Context, baseURL string) error {
	c, err := client.New(baseURL, client.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}
	defer c.Close()

	for i, text := range demoMessages {
		m, err := c.Post(ctx, text)
		if err != nil {
			return fmt.Errorf("post %d: %w", i, err)
		}
		for j := 0; j < i; j++ {
			if _, err := c.Like(ctx, m.Timestamp); err != nil {
				return fmt.Errorf("like %d: %w", i, err)
			}
		}
	}
	return nil
}

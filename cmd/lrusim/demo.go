package main

import (
	"flag"
	"fmt"
	"io"

	"lrusim/internal/cache"
	"lrusim/internal/logger"
	"lrusim/internal/session"
)

// demo walks through the eviction scenario on a single cache and prints the
// MRU -> LRU state after every step.
func demo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var (
		capacity = fs.Int("capacity", 2, "cache capacity")
		logLevel = fs.String("log-level", "info", "debug, info, warn or error")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.New(*logLevel, "text", stdout)

	c, err := cache.New(*capacity, cache.WithEvictCallback(func(key int, value string) {
		log.Info("evicted", "key", key, "value", value)
	}))
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	log.Info("cache initialized", "capacity", c.Cap())

	show := func(step string) {
		entries := c.Snapshot()
		rendered := make([]cache.Entry[string, string], len(entries))
		for i, e := range entries {
			rendered[i] = cache.Entry[string, string]{Key: fmt.Sprint(e.Key), Value: e.Value}
		}
		fmt.Fprintf(stdout, "%-12s %s\n", step, session.Render(rendered))
	}

	c.Put(1, "A")
	show("put 1:A")
	c.Put(2, "B")
	show("put 2:B")

	// Touch 1 so 2 becomes least-recently-used.
	if v, ok := c.Get(1); ok {
		log.Info("get hit", "key", 1, "value", v)
	}
	show("get 1")

	c.Put(3, "C")
	show("put 3:C")

	if _, ok := c.Get(2); !ok {
		log.Info("get miss", "key", 2)
	}
	show("get 2")
	return nil
}

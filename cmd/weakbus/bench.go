package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/weakbus/weakbus-go/pkg/msgbus"
)

var (
	benchPublishers  int
	benchSubscribers int
	benchMessages    int
)

func newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure concurrent publish throughput on a single key",
		RunE:  runBench,
	}

	cmd.Flags().IntVar(&benchPublishers, "publishers", 4, "Number of concurrent publisher goroutines")
	cmd.Flags().IntVar(&benchSubscribers, "subscribers", 16, "Number of subscribers on the benchmark key")
	cmd.Flags().IntVar(&benchMessages, "messages", 10000, "Messages published per publisher")

	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	bus, err := newDemoBus()
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	key := msgbus.StringKey("bench")
	var received atomic.Int64

	for i := 0; i < benchSubscribers; i++ {
		h, err := msgbus.NewStaticHandle(func(orderPlaced) {
			received.Add(1)
		})
		if err != nil {
			return fmt.Errorf("failed to create handle: %w", err)
		}
		if _, err := bus.Register(ctx, key, h); err != nil {
			return fmt.Errorf("failed to register subscriber %d: %w", i, err)
		}
	}

	fmt.Printf("Publishing %d messages from %d publishers to %d subscribers...\n",
		benchMessages*benchPublishers, benchPublishers, benchSubscribers)

	var wg sync.WaitGroup
	start := time.Now()
	for p := 0; p < benchPublishers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < benchMessages; i++ {
				if _, err := bus.Publish(ctx, key, orderPlaced{ID: fmt.Sprintf("p%d-m%d", id, i)}); err != nil {
					fmt.Printf("publish failed: %v\n", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	elapsed := time.Since(start)

	published := int64(benchMessages * benchPublishers)
	fmt.Printf("Done in %v\n", elapsed)
	fmt.Printf("  publishes:  %d (%.0f/s)\n", published, float64(published)/elapsed.Seconds())
	fmt.Printf("  deliveries: %d (%.0f/s)\n", received.Load(), float64(received.Load())/elapsed.Seconds())

	return nil
}

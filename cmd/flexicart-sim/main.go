package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/flexi-common/logger"
	"github.com/Sarthak207/FlexiCart/internal/simulator"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "FlexiCart server base URL")
		userID   = flag.String("user", "demo-user", "Cart user id")
		deviceID = flag.String("device", "load-cell-01", "Load cell device id")
		items    = flag.Int("items", 4, "Number of catalog products to place in the cart")
		repeat   = flag.Duration("repeat-after", 2500*time.Millisecond, "Wait before re-scanning the first product (should exceed the server scan cooldown)")
		interval = flag.Duration("interval", 100*time.Millisecond, "Interval between weight samples")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	zl, err := logger.NewLogger(*logLevel, "console", "flexicart-sim")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sc := simulator.DefaultScenario(*userID, *deviceID, *items)
	sc.RepeatAfter = *repeat
	sc.SampleInterval = *interval

	client := simulator.NewClient(*baseURL, zl)
	report, err := sc.Run(ctx, client, zl)
	if err != nil {
		zl.Fatal("Scenario failed", zap.Error(err))
	}

	fmt.Printf("added=%d duplicates=%d\n", report.Added, report.Duplicates)
	for _, item := range report.Cart.Items {
		fmt.Printf("  %-4s %-20s x%d  %.2f\n", item.ProductID, item.Name, item.Quantity, item.UnitPrice*float64(item.Quantity))
	}
	fmt.Printf("total_quantity=%d total_price=%.2f expected_weight=%.0fg\n",
		report.Cart.TotalQuantity, report.Cart.TotalPrice, report.Cart.ExpectedWeight)
	fmt.Printf("scale smoothed=%.1fg stable=%v stable_weight=%.1fg\n",
		report.FinalWeight.SmoothedWeight, report.FinalWeight.IsStable, report.FinalWeight.StableWeight)
}

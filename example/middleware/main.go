// Example: middleware — assemble a transport with logging, retries and a
// circuit breaker, then drive the JSON-RPC filter method shim on top of it.
//
// Usage:
//
//	ETH_RPC_URL=https://eth-mainnet.alchemyapi.io/v2/YOUR_KEY go run ./example/middleware
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/periscope"
	"github.com/hedeqiang/periscope/api"
	"github.com/hedeqiang/periscope/chain/ethereum"
	mw "github.com/hedeqiang/periscope/middleware"
	"github.com/hedeqiang/periscope/retry"
	"github.com/hedeqiang/periscope/transport"
)

func main() {
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		log.Fatal("ETH_RPC_URL environment variable is required")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	metrics := mw.NewMetrics()
	tr := mw.Apply(transport.NewHTTP(rpcURL),
		mw.NewLogger(logger),
		metrics,
		mw.NewBreaker(retry.NewCircuitBreaker(5, 30*time.Second)),
		mw.NewRetry(retry.Exponential(3)),
	)
	defer tr.Close()

	p := periscope.New(ethereum.NewWithTransport(tr),
		periscope.WithLogger(logger),
		periscope.WithExpiry(10*time.Minute),
	)
	defer p.Close()

	// The shim speaks wire encodings: hex ids in, hex-encoded results out.
	filters := api.New(p)

	ctx := context.Background()
	id, err := filters.NewBlockFilter(ctx)
	if err != nil {
		log.Fatalf("eth_newBlockFilter: %v", err)
	}
	fmt.Printf("installed filter %s\n", id)

	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Second)

		changes, err := filters.GetFilterChanges(ctx, id)
		if err != nil {
			log.Printf("eth_getFilterChanges: %v", err)
			continue
		}
		fmt.Printf("changes: %v\n", changes)
	}

	removed, _ := filters.UninstallFilter(ctx, id)
	fmt.Printf("uninstalled=%v rpc_calls=%d failures=%d\n", removed, metrics.Calls(), metrics.Failures())
}

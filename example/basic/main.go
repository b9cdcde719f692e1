// Example: basic — emulate eth_newBlockFilter / eth_getFilterChanges by
// polling a plain HTTP JSON-RPC endpoint.
//
// Usage:
//
//	ETH_RPC_URL=https://eth-mainnet.alchemyapi.io/v2/YOUR_KEY go run ./example/basic
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedeqiang/periscope"
	"github.com/hedeqiang/periscope/chain/ethereum"
	"github.com/hedeqiang/periscope/filter"
)

func main() {
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		log.Fatal("ETH_RPC_URL environment variable is required")
	}

	be := ethereum.New(rpcURL)
	defer be.Close()

	p := periscope.New(be)
	defer p.Close()

	ctx := context.Background()

	// A block filter: every poll returns the hashes that arrived in between.
	blockID, err := p.NewBlockFilter(ctx)
	if err != nil {
		log.Fatalf("new block filter: %v", err)
	}

	// A log filter for ERC-20 Transfer events on USDC.
	transfer := filter.TopicFor("Transfer(address,address,uint256)")
	logID, err := p.NewLogFilter(ctx, filter.RawCriteria{
		Address: filter.AddressList{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		Topics:  []filter.TopicSlot{{transfer.Hex()}},
	})
	if err != nil {
		log.Fatalf("new log filter: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	fmt.Println("polling... (Ctrl-C to stop)")
	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			blocks, err := p.Changes(ctx, blockID)
			if err != nil {
				log.Printf("block filter: %v", err)
				continue
			}
			for _, h := range blocks.BlockHashes {
				fmt.Printf("new block %s\n", h)
			}

			logs, err := p.Changes(ctx, logID)
			if err != nil {
				log.Printf("log filter: %v", err)
				continue
			}
			for _, l := range logs.Logs {
				fmt.Printf("transfer in block %d tx %s\n", l.BlockNumber, l.TxHash)
			}
		}
	}
}

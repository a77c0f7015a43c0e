package main

import (
	"context"
	"fmt"

	"github.com/erain9/otcbook/pkg/backend/memory"
	"github.com/erain9/otcbook/pkg/core"
	"github.com/erain9/otcbook/pkg/db/queue"
	"github.com/erain9/otcbook/pkg/messaging"
)

func main() {
	// Keep fill publishing local; no broker needed for the walkthrough
	queue.SetSenderFactory(func() (messaging.MessageSender, error) {
		return messaging.NewMockMessageSender(), nil
	})

	// Initialize order book with in-memory backend
	backend := memory.NewMemoryBackend()
	book := core.NewOrderBook(backend)
	registry := core.NewRegistry(backend)

	ctx := context.Background()

	// Register a token
	token, _ := core.GenerateFakeERC20Address()
	info, err := registry.AddToken(&core.TokenInfo{
		ChainID: 1,
		Token:   token,
		Name:    "Example Token",
		Symbol:  "EXT",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Registered token: %s (%s)\n", info.Symbol, info.Token)

	// Create a sell order for 1000 units at 2.50
	seller, _ := core.GenerateFakeERC20Address()
	price, _ := core.ParsePrice("2.50")
	amount, _ := core.ParseAmount("1000")
	sellOrder, err := core.NewOrder(core.NewOrderID(), token, seller, core.Sell, price, amount)
	if err != nil {
		panic(err)
	}
	if err := book.Submit(ctx, sellOrder); err != nil {
		panic(err)
	}
	fmt.Printf("Created sell order: %s\n", sellOrder.ID())

	// A buyer takes 400 of it
	buyer, _ := core.GenerateFakeERC20Address()
	fill, _ := core.ParseAmount("400")
	result, err := book.Accept(ctx, sellOrder.ID(), buyer, fill)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Partial fill: filled=%s status=%s trade=%s\n",
		result.FilledAmount, result.Status, result.Trade.ID)

	// A second accept with no amount takes whatever is left
	result, err = book.Accept(ctx, sellOrder.ID(), buyer, nil)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Final fill: filled=%s status=%s\n", result.FilledAmount, result.Status)

	// Summary
	final := book.GetOrder(sellOrder.ID())
	fmt.Println("\nSummary:")
	fmt.Printf("- Order: ID=%s, Price=%s, Filled=%s/%s, Status=%s\n",
		final.ID(), final.Price(), final.Filled(), final.Amount(), final.Status())
	for _, trade := range book.Trades(token) {
		fmt.Printf("- Trade: ID=%s, Amount=%s, Maker=%s, Taker=%s\n",
			trade.ID, trade.Amount, trade.Maker, trade.Taker)
	}
}

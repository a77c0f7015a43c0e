package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erain9/otcbook/pkg/server"
)

// clientBaseURL parses leading global flags from argv and returns the
// server base URL plus the remaining (subcommand) arguments.
func clientBaseURL(argv []string) (string, []string) {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "The server base URL")
	_ = fs.Parse(argv)
	return *addr, fs.Args()
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Global flags come before the subcommand
	base, args := clientBaseURL(os.Args[1:])
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	// Get the command
	command := args[0]

	// Rewrite os.Args so the subcommands can parse their own flags
	os.Args = append(os.Args[:1], args[1:]...)

	client := &apiClient{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	// Execute the appropriate command
	switch command {
	case "add-token":
		addToken(client, os.Args[1:]...)
	case "list-tokens":
		listTokens(client)
	case "submit-order":
		submitOrder(client, os.Args[1:]...)
	case "get-order":
		if len(os.Args) < 2 {
			fmt.Println("Usage: get-order <id>")
			os.Exit(1)
		}
		getOrder(client, os.Args[1])
	case "accept-order":
		if len(os.Args) < 3 {
			fmt.Println("Usage: accept-order <id> <taker> [amount]")
			os.Exit(1)
		}
		amount := ""
		if len(os.Args) > 3 {
			amount = os.Args[3]
		}
		acceptOrder(client, os.Args[1], os.Args[2], amount)
	case "cancel-order":
		if len(os.Args) < 3 {
			fmt.Println("Usage: cancel-order <id> <owner>")
			os.Exit(1)
		}
		cancelOrder(client, os.Args[1], os.Args[2])
	case "trades":
		token := ""
		if len(os.Args) > 1 {
			token = os.Args[1]
		}
		listTrades(client, token)
	case "book":
		if len(os.Args) < 2 {
			fmt.Println("Usage: book <token>")
			os.Exit(1)
		}
		if err := printBook(client, os.Args[1]); err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch order book")
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// apiClient is a thin JSON client for the HTTP API
type apiClient struct {
	base string
	http *http.Client
}

func (c *apiClient) post(path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *apiClient) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode >= 400 {
		var apiErr server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func addToken(c *apiClient, args ...string) {
	token := flag.String("token", "", "Token contract address")
	chainID := flag.Int64("chain", 1, "Chain ID")
	name := flag.String("name", "", "Token name")
	symbol := flag.String("symbol", "", "Token symbol")
	flag.Parse()

	if *token == "" && len(args) >= 1 {
		token = &args[0]
	}
	if *token == "" {
		fmt.Println("Usage: add-token <address> [--chain=N] [--name=X] [--symbol=X]")
		os.Exit(1)
	}

	var out map[string]interface{}
	err := c.post("/api/registry/tokens", server.AddTokenRequest{
		ChainID: *chainID,
		Token:   *token,
		Name:    *name,
		Symbol:  *symbol,
	}, &out)
	if err != nil {
		log.Fatal().Err(err).Msg("AddToken failed")
	}

	log.Info().
		Str("token", fmt.Sprint(out["token"])).
		Str("symbol", fmt.Sprint(out["symbol"])).
		Msg("Registered token")
}

func listTokens(c *apiClient) {
	var tokens []map[string]interface{}
	if err := c.get("/api/registry/tokens", &tokens); err != nil {
		log.Fatal().Err(err).Msg("ListTokens failed")
	}

	log.Info().Int("total", len(tokens)).Msg("Listed tokens")
	for i, token := range tokens {
		log.Info().
			Int("index", i+1).
			Str("token", fmt.Sprint(token["token"])).
			Str("symbol", fmt.Sprint(token["symbol"])).
			Msg("Token")
	}
}

func submitOrder(c *apiClient, args ...string) {
	token := flag.String("token", "", "Token contract address")
	owner := flag.String("owner", "", "Owner's wallet address")
	side := flag.String("side", "", "Order side (buy/sell)")
	price := flag.String("price", "", "Order price")
	amount := flag.String("amount", "", "Order amount")
	flag.Parse()

	// If no flags are set, use positional arguments
	if *token == "" && len(args) >= 5 {
		token = &args[0]
		owner = &args[1]
		side = &args[2]
		price = &args[3]
		amount = &args[4]
	}

	if *token == "" || *owner == "" || *side == "" || *price == "" || *amount == "" {
		fmt.Println("Usage: submit-order <token> <owner> <side> <price> <amount>")
		fmt.Println("   or: submit-order --token=<addr> --owner=<addr> --side=<side> --price=<price> --amount=<amount>")
		os.Exit(1)
	}

	var out map[string]interface{}
	err := c.post("/api/orders", server.SubmitOrderRequest{
		Token:  *token,
		Owner:  *owner,
		Side:   *side,
		Price:  *price,
		Amount: *amount,
	}, &out)
	if err != nil {
		log.Fatal().Err(err).Msg("SubmitOrder failed")
	}

	log.Info().
		Str("order_id", fmt.Sprint(out["id"])).
		Str("status", fmt.Sprint(out["status"])).
		Msg("Created order")
}

func getOrder(c *apiClient, orderID string) {
	var out map[string]interface{}
	if err := c.get("/api/orders/"+orderID, &out); err != nil {
		log.Fatal().Err(err).Msg("GetOrder failed")
	}

	log.Info().
		Str("order_id", fmt.Sprint(out["id"])).
		Str("token", fmt.Sprint(out["token"])).
		Str("side", fmt.Sprint(out["side"])).
		Str("price", fmt.Sprint(out["price"])).
		Str("amount", fmt.Sprint(out["amount"])).
		Str("filled", fmt.Sprint(out["filled"])).
		Str("status", fmt.Sprint(out["status"])).
		Msg("Retrieved order")
}

func acceptOrder(c *apiClient, orderID, taker, amount string) {
	var out server.AcceptOrderResponse
	err := c.post("/api/orders/"+orderID+"/accept", server.AcceptOrderRequest{
		Taker:  taker,
		Amount: amount,
	}, &out)
	if err != nil {
		log.Fatal().Err(err).Msg("AcceptOrder failed")
	}

	log.Info().
		Str("order_id", out.OrderID).
		Str("trade_id", out.TradeID).
		Str("filled_amount", out.FilledAmount).
		Str("remaining", out.Remaining).
		Str("status", out.Status).
		Msg("Accepted order")
}

func cancelOrder(c *apiClient, orderID, owner string) {
	err := c.post("/api/orders/"+orderID+"/cancel", server.CancelOrderRequest{
		Owner: owner,
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("CancelOrder failed")
	}

	log.Info().Str("order_id", orderID).Msg("Order cancelled")
}

func listTrades(c *apiClient, token string) {
	path := "/api/trades"
	if token != "" {
		path += "?token=" + token
	}

	var trades []map[string]interface{}
	if err := c.get(path, &trades); err != nil {
		log.Fatal().Err(err).Msg("ListTrades failed")
	}

	log.Info().Int("total", len(trades)).Msg("Listed trades")
	for i, trade := range trades {
		log.Info().
			Int("index", i+1).
			Str("trade_id", fmt.Sprint(trade["id"])).
			Str("order_id", fmt.Sprint(trade["orderId"])).
			Str("price", fmt.Sprint(trade["price"])).
			Str("amount", fmt.Sprint(trade["amount"])).
			Msg("Trade")
	}
}

func printBook(c *apiClient, token string) error {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	var book struct {
		Token string                   `json:"token"`
		Buys  []map[string]interface{} `json:"buys"`
		Sells []map[string]interface{} `json:"sells"`
	}
	if err := c.get("/api/orderbook?token="+token, &book); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	// Print headers with consistent spacing
	fmt.Fprintf(w, "%15s|%15s|%15s|%15s|%s\n",
		cyan("Price"),
		cyan("Remaining"),
		cyan("Owner"),
		cyan("Status"),
		cyan("Side"))

	fmt.Fprintf(w, "%15s|%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"---------------",
		"----")

	// Print sells (asks)
	for _, order := range book.Sells {
		price, _ := strconv.ParseFloat(fmt.Sprint(order["price"]), 64)
		fmt.Fprintf(w, "%15.3f|%15s|%15s|%15s|%s\n",
			price,
			remainingOf(order),
			fmt.Sprint(order["owner"]),
			fmt.Sprint(order["status"]),
			red("ASK"))
	}

	// Print separator between sells and buys
	fmt.Fprintf(w, "%15s|%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"---------------",
		"----")

	// Print buys (bids)
	for _, order := range book.Buys {
		price, _ := strconv.ParseFloat(fmt.Sprint(order["price"]), 64)
		fmt.Fprintf(w, "%15.3f|%15s|%15s|%15s|%s\n",
			price,
			remainingOf(order),
			fmt.Sprint(order["owner"]),
			fmt.Sprint(order["status"]),
			green("BID"))
	}

	return w.Flush()
}

// remainingOf computes amount-filled from the wire decimal strings
func remainingOf(order map[string]interface{}) string {
	amount, ok1 := new(big.Int).SetString(fmt.Sprint(order["amount"]), 10)
	filled, ok2 := new(big.Int).SetString(fmt.Sprint(order["filled"]), 10)
	if !ok1 || !ok2 {
		return "?"
	}
	return new(big.Int).Sub(amount, filled).String()
}

func printUsage() {
	fmt.Println("Usage: client [-addr=URL] <command> [args]")
	fmt.Println("\nCommands:")
	fmt.Println("  add-token <address> [--chain=N] [--name=X] [--symbol=X]")
	fmt.Println("  list-tokens")
	fmt.Println("  submit-order <token> <owner> <side> <price> <amount>")
	fmt.Println("  get-order <id>")
	fmt.Println("  accept-order <id> <taker> [amount]")
	fmt.Println("  cancel-order <id> <owner>")
	fmt.Println("  trades [token]")
	fmt.Println("  book <token>")
	fmt.Println("\nExamples:")
	fmt.Println("  add-token 0x1234567890123456789012345678901234567890 --symbol=EXT")
	fmt.Println("  submit-order 0x1234... 0xabcd... sell 2.50 1000")
	fmt.Println("  accept-order <id> 0xdcba... 400")
	fmt.Println("  book 0x1234567890123456789012345678901234567890")
}

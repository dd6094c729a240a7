// ordercmd issues order-management commands against the checkout API from
// the command line: authorize, cancel, refund and charge-and-ship.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/checkout-bridge/internal/checkout"
	"github.com/noah-isme/checkout-bridge/internal/config"
	"github.com/noah-isme/checkout-bridge/internal/resilience"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, relying on environment variables")
	}

	var (
		orderNumber = flag.String("order", "", "provider order number (required)")
		amount      = flag.String("amount", "", "amount for refund / charge-and-ship; empty means full amount")
		currency    = flag.String("currency", "USD", "ISO currency code for amounts")
		reason      = flag.String("reason", "", "reason for cancel / refund")
		comment     = flag.String("comment", "", "optional comment for cancel / refund")
		carrier     = flag.String("carrier", "", "shipping carrier for charge-and-ship")
		tracking    = flag.String("tracking", "", "tracking number for charge-and-ship")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] authorize|cancel|refund|charge-and-ship\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" || *orderNumber == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	order := checkout.Order{
		MerchantID:  cfg.MerchantID,
		MerchantKey: cfg.MerchantKey,
		Number:      *orderNumber,
		Currency:    *currency,
		Sandbox:     cfg.Sandbox,
		BaseURL:     cfg.CheckoutBaseURL,
		HTTP: resilience.HTTPClient{
			Client:      http.DefaultClient,
			MaxAttempts: cfg.CommandMaxAttempts,
			Timeout:     cfg.CommandTimeout,
			Target:      "checkout",
		},
	}

	ctx := context.Background()
	var doc *checkout.Doc
	switch command {
	case "authorize":
		doc, err = order.Authorize(ctx)
	case "cancel":
		if *reason == "" {
			fmt.Fprintln(os.Stderr, "cancel requires -reason")
			os.Exit(2)
		}
		doc, err = order.Cancel(ctx, *reason, *comment)
	case "refund":
		if *reason == "" {
			fmt.Fprintln(os.Stderr, "refund requires -reason")
			os.Exit(2)
		}
		doc, err = order.Refund(ctx, *amount, *reason, *comment)
	case "charge-and-ship":
		doc, err = order.ChargeAndShip(ctx, *amount, *carrier, *tracking)
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, command+":", err)
		os.Exit(1)
	}

	fmt.Println(command, "accepted")
	for _, key := range doc.Keys() {
		if value, ok := doc.Lookup(key); ok {
			fmt.Printf("  %s: %v\n", key, value)
		}
	}
}

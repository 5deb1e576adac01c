package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Replays provider webhooks against a local server. With -n > 1 the
// same notification is delivered concurrently, which is how providers
// behave during retry storms; exactly one delivery should create an
// order, the rest must come back already_fulfilled.

type sessionEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentIntent     string `json:"payment_intent"`
			PaymentStatus     string `json:"payment_status"`
			AmountTotal       int    `json:"amount_total"`
			Currency          string `json:"currency"`
		} `json:"object"`
	} `json:"data"`
}

func main() {
	target := flag.String("url", "http://localhost:8080/api/webhooks/payments", "Webhook URL")
	style := flag.String("style", "checkout_session", "Provider style: mercadopago | checkout_session")
	n := flag.Int("n", 1, "Concurrent deliveries of the same event")

	// mercadopago style
	paymentID := flag.String("payment-id", "1234567890", "Provider payment id (query notification)")
	topic := flag.String("topic", "payment", "Notification topic")

	// checkout_session style
	secret := flag.String("secret", os.Getenv("CS_WEBHOOK_SECRET"), "Webhook signing secret")
	eventType := flag.String("type", "checkout.session.completed", "Event type")
	reference := flag.String("reference", "", "External reference (client_reference_id)")
	intent := flag.String("intent", "pi_"+randomHex(10), "Payment intent id")
	amount := flag.Int("amount", 5000, "Amount in cents")
	currency := flag.String("currency", "usd", "Currency")

	flag.Parse()

	var build func() (*http.Request, error)
	switch *style {
	case "mercadopago":
		build = func() (*http.Request, error) {
			u, err := url.Parse(*target)
			if err != nil {
				return nil, err
			}
			q := u.Query()
			q.Set("topic", *topic)
			q.Set("id", *paymentID)
			u.RawQuery = q.Encode()
			return http.NewRequest(http.MethodPost, u.String(), nil)
		}

	case "checkout_session":
		if *secret == "" {
			fmt.Fprintln(os.Stderr, "Error: -secret not provided and CS_WEBHOOK_SECRET not set")
			os.Exit(1)
		}
		if *reference == "" {
			fmt.Fprintln(os.Stderr, "Error: -reference is required for checkout_session style")
			os.Exit(1)
		}

		var ev sessionEvent
		ev.ID = "evt_" + randomHex(10)
		ev.Type = *eventType
		ev.Data.Object.ID = "cs_" + randomHex(10)
		ev.Data.Object.ClientReferenceID = *reference
		ev.Data.Object.PaymentIntent = *intent
		ev.Data.Object.PaymentStatus = "paid"
		ev.Data.Object.AmountTotal = *amount
		ev.Data.Object.Currency = *currency

		body, err := json.Marshal(ev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
			os.Exit(1)
		}

		t := time.Now().Unix()
		sigHeader := fmt.Sprintf("t=%d,v1=%s", t, computeSig([]byte(*secret), t, body))
		fmt.Printf("X-Signature: %s\n", sigHeader)
		fmt.Printf("Body: %s\n\n", string(body))

		build = func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Signature", sigHeader)
			return req, nil
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown style: %s\n", *style)
		os.Exit(1)
	}

	fmt.Printf("Sending %d delivery(ies) to %s...\n", *n, *target)

	var failures atomic.Int32
	var g errgroup.Group
	for i := 0; i < *n; i++ {
		idx := i
		g.Go(func() error {
			req, err := build()
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			respBody, _ := io.ReadAll(resp.Body)
			fmt.Printf("[%d] status=%d body=%s\n", idx, resp.StatusCode, bytes.TrimSpace(respBody))
			if resp.StatusCode != http.StatusOK {
				failures.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failures.Load() > 0 {
		os.Exit(1)
	}
}

func computeSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func randomHex(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "0123456789abcdef"[(time.Now().UnixNano()+int64(i))%16]
	}
	return string(b)
}

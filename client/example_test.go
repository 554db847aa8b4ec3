package client_test

import (
	"context"
	"fmt"
	"log"

	"github.com/BTCEnoch/blockdata/client"
)

func Example() {
	// A FetcherFunc stands in for the HTTP fetcher.
	fetcher := client.FetcherFunc(func(ctx context.Context, key string) (client.Value, error) {
		return client.Value{Height: 830000, Hash: "000000000000000000018e3ea447b11385e3330348010e1b2418d0caefdb1e7f"}, nil
	})

	c, err := client.New(client.DefaultConfig(), fetcher)
	if err != nil {
		log.Fatal(err)
	}

	res, err := c.Fetch(context.Background(), "830000")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Source, res.Value.Height)

	// The second fetch is served from cache.
	res, err = c.Fetch(context.Background(), "830000")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Source, res.Value.Height)

	// Output:
	// network 830000
	// cache 830000
}

func ExampleClient_Fetch_forceRefresh() {
	calls := 0
	fetcher := client.FetcherFunc(func(ctx context.Context, key string) (client.Value, error) {
		calls++
		return client.Value{Height: 830000}, nil
	})

	c, err := client.New(client.DefaultConfig(), fetcher)
	if err != nil {
		log.Fatal(err)
	}

	c.Fetch(context.Background(), "830000")
	c.Fetch(context.Background(), "830000", client.ForceRefresh())
	fmt.Println("upstream calls:", calls)

	// Output:
	// upstream calls: 2
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/park285/fenscan/internal/fenclient"
)

func main() {
	baseURL := os.Getenv("FENSCAN_URL")
	userID := os.Getenv("X_USER_ID")
	imagePath := os.Getenv("FENSCAN_CHECK_IMAGE")
	if len(os.Args) > 1 {
		imagePath = os.Args[1]
	}

	if baseURL == "" {
		log.Fatal("FENSCAN_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		return m
	}

	client := fenclient.NewClient(baseURL,
		fenclient.WithHeaderProvider(headers),
		fenclient.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Printf("/health ok")

	if imagePath == "" {
		log.Println("no image given; skipping predict check")
		return
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	pctx, pcancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer pcancel()
	start := time.Now()
	res, err := client.Predict(pctx, filepath.Base(imagePath), data)
	if err != nil {
		log.Fatalf("/predict error: %v", err)
	}
	fmt.Printf("%s\tid=%s\tcached=%v\t%s\n", res.FEN, res.ID, res.Cached, time.Since(start).Round(time.Millisecond))
}

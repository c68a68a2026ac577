package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nostrlabs/nostroracle/src/ai"
	"github.com/nostrlabs/nostroracle/src/cache"
	"github.com/nostrlabs/nostroracle/src/extractor"
	"github.com/nostrlabs/nostroracle/src/news"
	"github.com/nostrlabs/nostroracle/src/scorer"
)

var (
	contentFlag = flag.String("content", defaultContent, "Post content to run through the pipeline")
	timeoutFlag = flag.Duration("timeout", 8*time.Second, "Per-call timeout")
	searchFlag  = flag.Bool("search", true, "Query the news provider (needs NEWSAPI_KEY)")
	maxLenFlag  = flag.Int("max-claims", 10, "Maximum claims to verify")
)

const defaultContent = "The central bank raised interest rates by half a percent today. " +
	"Officials said inflation remains above target."

func main() {
	log.SetFlags(0)
	flag.Parse()
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var completer extractor.Completer
	if client := ai.NewClient(os.Getenv("OPENAI_API_KEY"), *timeoutFlag); client != nil {
		completer = client
	}
	ext := extractor.New(completer)

	extraction := ext.Extract(ctx, *contentFlag)
	fmt.Printf("=== extraction (%s, %dms) ===\n", extraction.Method, extraction.ProcessingTime.Milliseconds())
	for i, claim := range extraction.Claims {
		fmt.Printf("%d. %s\n", i+1, claim)
	}
	if len(extraction.Claims) == 0 {
		fmt.Println("no claims extracted")
		return
	}

	claims := extraction.Claims
	if len(claims) > *maxLenFlag {
		claims = claims[:*maxLenFlag]
	}

	policy := scorer.DefaultPolicy()
	newsClient := news.NewClient(os.Getenv("NEWSAPI_KEY"), *timeoutFlag)

	fmt.Println("=== scoring ===")
	for _, claim := range claims {
		query := scorer.OptimizeQuery(claim)
		if !*searchFlag {
			score, confidence := policy.FallbackScore(claim)
			fmt.Printf("⚠️  %d/100 (%s, no search) %q -> %q\n", score, confidence, claim, query)
			continue
		}

		searchCtx, cancelSearch := context.WithTimeout(ctx, *timeoutFlag)
		articles, err := newsClient.Search(searchCtx, query)
		cancelSearch()
		if err != nil {
			score, confidence := policy.FallbackScore(claim)
			fmt.Printf("❌ %d/100 (%s) %q: %v\n", score, confidence, claim, err)
			continue
		}

		score, confidence := policy.Score(claim, articles)
		fmt.Printf("✅ %d/100 (%s, %d sources, key %s) %q\n",
			score, confidence, len(articles), cache.Hash(claim), claim)
		for _, a := range articles {
			fmt.Printf("   - %s (%s)\n", a.Title, a.SourceName)
		}
	}
}

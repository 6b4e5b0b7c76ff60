// Command client runs a headless driftline client: it mirrors the backend
// collections through the sync store and prints the feed. Mostly useful for
// poking at a running backend during development.
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

	"driftline/internal/cache"
	"driftline/internal/config"
	"driftline/internal/remote"
	"driftline/internal/router"
	"driftline/internal/session"
	"driftline/internal/store"
)

func main() {
	var (
		email    = flag.String("email", "", "account email (empty runs signed out)")
		password = flag.String("password", "", "account password")
		watch    = flag.Bool("watch", false, "keep running and reprint the feed on updates")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client := remote.NewWireClient(cfg.BackendURL)

	stateCache, err := cache.New(cfg.RedisURL, cfg.StateKey)
	if err != nil {
		log.Fatalf("Failed to initialize state cache: %v", err)
	}

	st := store.New(client, stateCache)
	rt := router.New(client.CurrentUser)
	gate := session.New(st, rt, client.Auth(), func() {
		log.Println("Client mounted")
	})
	gate.Attach()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.Start(ctx); err != nil {
		log.Fatalf("Failed to start sync store: %v", err)
	}

	if _, err := rt.Push(router.LoginPath); err != nil {
		log.Fatalf("Navigation failed: %v", err)
	}
	if *email != "" {
		if err := st.Login(ctx, *email, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		current := rt.Current()
		log.Printf("Signed in as %s, on %q", st.Profile().Name, current.Path)
	}

	// Give the initial snapshots a moment to arrive.
	time.Sleep(500 * time.Millisecond)
	printFeed(st)

	if !*watch {
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			printFeed(st)
		case <-sigChan:
			return
		}
	}
}

func printFeed(st *store.Store) {
	posts := st.Posts()
	fmt.Printf("--- feed (%d posts, %d stories, %d users) ---\n",
		len(posts), len(st.Stories()), len(st.Users()))
	for _, p := range posts {
		fmt.Printf("%s  %-16s %s  [%d likes, %d comments]\n",
			p.CreatedOn.Format(time.RFC3339), p.UserName, p.Content, p.Likes, p.Comments)
	}
}
